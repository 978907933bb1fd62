package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:3000"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultRateLimit       = 50
	DefaultShutdownTimeout = 15 * time.Second

	DefaultBackend           = BackendSheets
	DefaultRequestsPerMinute = 300
	DefaultBurst             = 10

	DefaultCacheMaxAge = 60 * time.Second
	DefaultWindowRows  = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          DefaultRateLimit,
			MaxBodyBytes:       DefaultMaxBodyBytes,
			ShutdownTimeout:    DefaultShutdownTimeout,
		},
		Store: StoreSection{
			Backend:           DefaultBackend,
			RequestsPerMinute: DefaultRequestsPerMinute,
			Burst:             DefaultBurst,
		},
		Workbooks: map[string]string{},
		Sync: SyncSection{
			CacheMaxAge: DefaultCacheMaxAge,
			WindowRows:  DefaultWindowRows,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
