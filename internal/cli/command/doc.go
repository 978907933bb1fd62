// Package command defines the sheetsync-cli commands using urfave/cli/v2.
//
//   - root.go: App, global flags, settings resolution
//   - sync.go: changes, update, push, add-column
//   - system.go: health, cache-clear, version, config save
//
// Global flags go before the command name. Each setting resolves from the
// flag, then SHEETSYNC_* environment variables, then ~/.sheetsync/cli.yaml.
package command
