// Package connection provides the HTTP client sheetsync-cli uses to reach a
// SheetSync server.
//
// Every call sends the shared token as X-API-Token and decodes the standard
// response envelope. Non-2xx replies become *APIError values carrying the
// server's error code.
package connection
