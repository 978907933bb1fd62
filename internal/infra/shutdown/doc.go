// Package shutdown coordinates graceful termination of sheetsync-server.
//
// Hooks are registered as components start and run in reverse order when
// SIGINT or SIGTERM arrives, or when the server's own context ends (for
// example after the listener fails). Every hook shares one timeout.
package shutdown
