// Package logger builds the slog handler chain used by both binaries.
//
// Records pass through a context handler that stamps request_id, workbook
// and sheet from the context, then through a redacting format handler
// (JSON or text). The minimum level lives in one process-wide LevelVar so
// the config watcher and the admin socket can move it at runtime.
package logger
