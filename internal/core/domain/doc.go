// Package domain defines the core domain models for SheetSync.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Workbooks: alias to spreadsheet identifier registry
//   - Cells: the versioned {a, v} cell payload stored in data columns
//   - Updates and outcomes: proposed cell writes and their tagged results
//   - Records: rows appended by the grower
//   - Errors: domain-specific error definitions
//
// The persisted layout is fixed: column A holds the row's last_modified
// integer, row 1 is the header/boundary row, and data cells hold the JSON
// text {"a": <version>, "v": <value>}.
package domain
