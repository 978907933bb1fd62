// Package config provides CLI configuration for SheetSync.
//
//   - spec.go: CLIConfig struct (~/.sheetsync/cli.yaml)
//   - loader.go: Load, Save and environment merging
//
// Flags override environment variables, which override the file.
package config
