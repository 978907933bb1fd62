// Package config provides server configuration for SheetSync.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: startup validation (workbooks, credentials, sync window)
//   - sanitize.go: masking of tokens and keys for logging
//   - credentials.go: merging inline identities with a service-account key file
//
// Configuration is loaded via internal/infra/confloader from a YAML file and
// SHEETSYNC_ environment variables.
package config
