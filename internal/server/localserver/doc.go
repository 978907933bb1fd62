// Package localserver serves local administration over a Unix domain socket.
//
// The socket is created with mode 0600, so file system permissions are the
// only access control and no API token is needed. Each request is one line
// holding a command and its arguments; each reply is one line of JSON:
//
//	status                 version, uptime, cache size and drain state
//	cache-clear [WORKBOOK] drop cached windows and column counts, all or one workbook's
//	log-level [LEVEL]      show or change the log level
//
// Call sends one command and decodes the reply.
package localserver
