// Package tlsroots manages TLS material for SheetSync.
//
//   - roots.go: trusted roots for outbound HTTPS (Sheets API, token
//     endpoint, sheetsync-cli to server), system pool plus a CA file
//   - watcher.go: serving key pair, reloaded through confloader.Watcher
package tlsroots
