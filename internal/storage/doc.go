// Package storage provides decorators around the tabular store.
//
// A decorator wraps a service.Source so that every GridStore handed out by
// it routes its calls through a shared hook:
//
//   - Throttle: client-side rate limiting against the remote quota
//   - Instrument: per-call metrics and debug logging
//
// Backends live in subpackages: gsheets talks to the Google Sheets API and
// memory keeps sheets in process.
package storage
