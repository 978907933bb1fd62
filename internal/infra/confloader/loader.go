package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of the server's environment variables.
const EnvPrefix = "SHEETSYNC_"

// Source is one configuration layer.
type Source struct {
	name string
	load func(k *koanf.Koanf) error
}

// File reads a YAML file. An empty path contributes nothing.
func File(path string) Source {
	return Source{
		name: "file " + path,
		load: func(k *koanf.Koanf) error {
			if path == "" {
				return nil
			}
			return k.Load(file.Provider(path), yaml.Parser())
		},
	}
}

// Env reads variables starting with prefix. A double underscore separates
// nesting levels and a single one stays part of the key:
//
//	SHEETSYNC_SYNC__WINDOW_ROWS=50      -> sync.window_rows
//	SHEETSYNC_WORKBOOKS__DEV=1n09MID5p  -> workbooks.dev
func Env(prefix string) Source {
	return Source{
		name: "environment " + prefix + "*",
		load: func(k *koanf.Koanf) error {
			return k.Load(env.Provider(prefix, ".", func(name string) string {
				return envKey(prefix, name)
			}), nil)
		},
	}
}

// Overrides applies dotted keys such as "server.http.addr", typically
// taken from command-line flags. A nil map contributes nothing.
func Overrides(values map[string]any) Source {
	return Source{
		name: "overrides",
		load: func(k *koanf.Koanf) error {
			if len(values) == 0 {
				return nil
			}
			return k.Load(overrideProvider(values), nil)
		},
	}
}

// Load merges sources in order, later ones winning, and decodes the result
// into target by koanf tags. Fields no source mentions keep whatever
// target already holds, so callers pass a struct filled with defaults.
func Load(target any, sources ...Source) error {
	k := koanf.New(".")
	for _, src := range sources {
		if err := src.load(k); err != nil {
			return fmt.Errorf("load %s: %w", src.name, err)
		}
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func envKey(prefix, name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(name, "__", ".")
}
