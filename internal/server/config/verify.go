package config

import (
	"net"
	"os"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
	"github.com/yndnr/sheetsync-go/pkg/crypto/adaptive"
)

// Verify validates the configuration. Every failure is a configuration
// error and stops the server before it listens.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStore(cfg); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return domain.ErrInvalidConfig.WithDetailsf("log.level: %v", err)
	}
	switch cfg.Log.Format {
	case "", "json", "text", "console":
	default:
		return domain.ErrInvalidConfig.WithDetailsf("log.format: unknown format %q", cfg.Log.Format)
	}
	if len(cfg.Workbooks) == 0 {
		return domain.ErrInvalidConfig.WithDetails("workbooks: at least one alias is required")
	}
	for alias, id := range cfg.Workbooks {
		if alias == "" || id == "" {
			return domain.ErrInvalidConfig.WithDetailsf("workbooks: alias %q has no spreadsheet id", alias)
		}
	}
	return verifySync(&cfg.Sync)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return domain.ErrInvalidConfig.WithDetailsf("server.http.addr: %v", err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return domain.ErrInvalidConfig.WithDetails("server.http: tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return domain.ErrInvalidConfig.WithDetailsf("server.http: %v", err)
		}
	}
	if cfg.RateLimit < 0 {
		return domain.ErrInvalidConfig.WithDetails("server.rate_limit must not be negative")
	}
	if cfg.MaxBodyBytes <= 0 {
		return domain.ErrInvalidConfig.WithDetails("server.max_body_bytes must be positive")
	}
	return nil
}

func verifyStore(cfg *ServerConfig) error {
	switch cfg.Store.Backend {
	case BackendSheets:
		if cfg.Auth.PrivateToken == "" {
			return domain.ErrInvalidConfig.WithDetails("auth.private_token is required with the sheets backend")
		}
		if len(cfg.Credentials) == 0 && cfg.Store.CredentialsFile == "" {
			return domain.ErrEmptyCredentialPool.WithDetails("credentials: the sheets backend needs at least one identity")
		}
		for i, c := range cfg.Credentials {
			if c.ClientEmail == "" || c.PrivateKey == "" {
				return domain.ErrInvalidCredential.WithDetailsf("credentials[%d]: client_email and private_key are required", i)
			}
		}
		if cfg.Store.SealKey != "" {
			if _, err := adaptive.ParseKey(cfg.Store.SealKey); err != nil {
				return domain.ErrInvalidConfig.WithDetailsf("store.seal_key: %v", err)
			}
		}
		if cfg.Store.CAFile != "" {
			if _, err := os.Stat(cfg.Store.CAFile); err != nil {
				return domain.ErrInvalidConfig.WithDetailsf("store.ca_file: %v", err)
			}
		}
	case BackendMemory:
		if cfg.Store.SeedFile != "" {
			if _, err := os.Stat(cfg.Store.SeedFile); err != nil {
				return domain.ErrInvalidConfig.WithDetailsf("store.seed_file: %v", err)
			}
		}
	default:
		return domain.ErrInvalidConfig.WithDetailsf("store.backend: unknown backend %q", cfg.Store.Backend)
	}
	if cfg.Store.RequestsPerMinute < 0 || cfg.Store.Burst < 0 {
		return domain.ErrInvalidConfig.WithDetails("store: requests_per_minute and burst must not be negative")
	}
	return nil
}

func verifySync(cfg *SyncSection) error {
	if cfg.WindowRows <= 1 {
		return domain.ErrInvalidConfig.WithDetails("sync.window_rows must be at least 2 (header plus one row)")
	}
	if cfg.CacheMaxAge < 0 {
		return domain.ErrInvalidConfig.WithDetails("sync.cache_max_age must not be negative")
	}
	if cfg.FullFetchMaxRows < 0 {
		return domain.ErrInvalidConfig.WithDetails("sync.full_fetch_max_rows must not be negative")
	}
	return nil
}
