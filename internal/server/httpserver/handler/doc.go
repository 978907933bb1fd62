// Package handler provides the HTTP handlers for SheetSync.
//
// Every JSON response uses the Response envelope. Domain errors map to HTTP
// status codes by kind: validation 400, unknown workbook or sheet 404, sync
// state mismatch 409, remote store 502, configuration 500.
package handler
