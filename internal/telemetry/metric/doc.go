// Package metric exposes SheetSync metrics in Prometheus format.
//
//   - prometheus.go: the registry, engine and remote-call observers, /metrics handler
//   - collector.go: scrape-time gauges read from live state (cache size, pool size)
//
// A Registry is private to its server; nothing registers with the
// prometheus default registerer, so tests can build as many as they need.
package metric
