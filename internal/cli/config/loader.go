package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Merge.
const (
	EnvServer   = "SHEETSYNC_SERVER"
	EnvToken    = "SHEETSYNC_TOKEN"
	EnvOutput   = "SHEETSYNC_OUTPUT"
	EnvWorkbook = "SHEETSYNC_WORKBOOK"
	EnvSheet    = "SHEETSYNC_SHEET"
	EnvCAFile   = "SHEETSYNC_CA_FILE"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".sheetsync", "cli.yaml")
}

// Load loads CLI configuration from file. A missing file yields defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions, since it may hold
// the API token.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Merge overrides cfg with non-empty SHEETSYNC_* values from env.
// It returns a copy.
func Merge(cfg *CLIConfig, env map[string]string) *CLIConfig {
	out := *cfg
	set := func(dst *string, key string) {
		if v := env[key]; v != "" {
			*dst = v
		}
	}
	set(&out.Server, EnvServer)
	set(&out.Token, EnvToken)
	set(&out.Output, EnvOutput)
	set(&out.Workbook, EnvWorkbook)
	set(&out.Sheet, EnvSheet)
	set(&out.CAFile, EnvCAFile)
	return &out
}

// Environ returns the SHEETSYNC_* variables Merge reads.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, k := range []string{EnvServer, EnvToken, EnvOutput, EnvWorkbook, EnvSheet, EnvCAFile} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}
