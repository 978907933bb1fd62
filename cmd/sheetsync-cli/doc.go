// Package main provides the entry point for sheetsync-cli.
//
// The CLI talks to a running sheetsync-server over its HTTP API:
//
//	sheetsync-cli --workbook dev --sheet Orders changes --since 1700000000000
//	sheetsync-cli -w dev --sheet Orders update --row 5 --col H --value '"paid"' --expected-version 2
//	sheetsync-cli -w dev --sheet Orders push --cell H=42
//	sheetsync-cli -w dev --sheet Orders changes --xlsx orders.xlsx
//
// Settings resolve from flags, then SHEETSYNC_* variables, then
// ~/.sheetsync/cli.yaml.
package main
