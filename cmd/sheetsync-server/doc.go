// Package main provides the entry point for sheetsync-server.
//
// The server exposes the sync engine over HTTP:
//
//   - Incremental sync, optimistic cell updates, appends and column growth
//     under /api, guarded by the shared X-API-Token header
//   - Health, readiness and Prometheus metrics endpoints
//
// Usage:
//
//	sheetsync-server [flags]
//	sheetsync-server --config /etc/sheetsync/config.yaml
//	sheetsync-server version
//
// Configuration is read from defaults, then the YAML file, then SHEETSYNC_*
// environment variables, then flags. Changing log.level in the file takes
// effect without a restart.
package main
