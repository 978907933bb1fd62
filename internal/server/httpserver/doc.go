// Package httpserver provides the HTTP/HTTPS server for SheetSync.
//
// This package exposes the sync engine using stdlib net/http:
//
//   - Sync endpoints: /api/data, /api/update, /api/push, /api/columns
//   - Operations: /api/cache/clear
//   - Health endpoints: /health, /ready, /metrics
//
// Every /api route requires the shared X-API-Token header and runs behind
// Recover, RequestID, CORS, RateLimit, Audit and a body size limit.
package httpserver
