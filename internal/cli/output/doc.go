// Package output renders sheetsync-cli results as aligned tables, JSON or
// YAML (Write), and exports fetched rows to .xlsx (WriteXLSX).
package output
