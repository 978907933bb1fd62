package config

import (
	"maps"

	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with the API token, seal key and private keys
// masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Auth.PrivateToken != "" {
		sanitized.Auth.PrivateToken = logger.RedactString(sanitized.Auth.PrivateToken)
	}

	if sanitized.Store.SealKey != "" {
		sanitized.Store.SealKey = logger.RedactString(sanitized.Store.SealKey)
	}

	if len(cfg.Credentials) > 0 {
		sanitized.Credentials = make([]CredentialConfig, len(cfg.Credentials))
		for i, c := range cfg.Credentials {
			c.PrivateKey = logger.RedactString(c.PrivateKey)
			sanitized.Credentials[i] = c
		}
	}
	sanitized.Workbooks = maps.Clone(cfg.Workbooks)
	sanitized.Server.CORSAllowedOrigins = append([]string(nil), cfg.Server.CORSAllowedOrigins...)

	return &sanitized
}
