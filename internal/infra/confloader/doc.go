// Package confloader merges server configuration from layered koanf
// sources and watches the config file for live changes.
//
// The server loads, lowest priority first: the defaults already in the
// target struct, File, Env(EnvPrefix), then Overrides built from flags.
// Watcher coalesces bursts of writes so an editor save triggers one
// reload; only log.level is applied live.
package confloader
