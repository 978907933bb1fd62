// Package gsheets implements service.GridStore over the Google Sheets v4 API.
//
// Each signing identity gets its own authenticated *sheets.Service, built
// once by the credential pool and reused afterwards. Values are written RAW
// so the API never parses formulas or numbers out of cell payloads, and
// read UNFORMATTED so timestamps come back as plain integers.
package gsheets
