package config

import "time"

// ServerConfig is the root configuration for sheetsync-server.
type ServerConfig struct {
	Server      ServerSection      `koanf:"server"`
	Auth        AuthSection        `koanf:"auth"`
	Store       StoreSection       `koanf:"store"`
	Credentials []CredentialConfig `koanf:"credentials"`
	Workbooks   map[string]string  `koanf:"workbooks"`
	Sync        SyncSection        `koanf:"sync"`
	Log         LogSection         `koanf:"log"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`

	// CORSAllowedOrigins lists origins allowed by CORS. "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimit is the per-client-IP request rate per second. 0 disables it.
	RateLimit float64 `koanf:"rate_limit"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// AdminSocket is a Unix socket path for local administration. Empty
	// disables it.
	AdminSocket string `koanf:"admin_socket"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// AuthSection configures the shared API token checked on /api routes.
type AuthSection struct {
	PrivateToken string `koanf:"private_token"`
}

// Store backends.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// StoreSection selects and tunes the tabular store.
type StoreSection struct {
	// Backend is "sheets" or "memory".
	Backend string `koanf:"backend"`

	// RequestsPerMinute throttles remote calls across all identities.
	// 0 disables throttling.
	RequestsPerMinute int `koanf:"requests_per_minute"`
	Burst             int `koanf:"burst"`

	// CredentialsFile optionally names a JSON file holding one service
	// account key object or an array of them.
	CredentialsFile string `koanf:"credentials_file"`

	// Endpoint overrides the Sheets API base URL.
	Endpoint string `koanf:"endpoint"`

	// CAFile adds PEM roots trusted for Sheets API and token calls, for
	// networks that intercept TLS.
	CAFile string `koanf:"ca_file"`

	// SealKey opens private keys stored as "sealed:..." text. 64 hex
	// digits or base64 of 32 bytes.
	SealKey string `koanf:"seal_key"`

	// SeedFile is a YAML file of sheets preloaded into the memory backend.
	SeedFile string `koanf:"seed_file"`
}

// CredentialConfig is one signing identity.
type CredentialConfig struct {
	ClientEmail string `koanf:"client_email" json:"client_email"`
	PrivateKey  string `koanf:"private_key" json:"private_key"`
}

// SyncSection tunes the sync engine.
type SyncSection struct {
	CacheMaxAge      time.Duration `koanf:"cache_max_age"`
	WindowRows       int           `koanf:"window_rows"`
	FullFetchMaxRows int           `koanf:"full_fetch_max_rows"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
