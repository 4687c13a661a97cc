// Package metric provides Prometheus metrics for rtcell.
//
//   - prometheus.go: Registry with borrow and worker metrics, /metrics handler
//   - collector.go: MapCollector reporting live borrow states of an rtmap.Map
//   - server.go: HTTP server exposing the handler
//
// All metrics use the "rtcell" namespace and a private registry, so several
// registries can coexist in one process (tests, embedded harnesses).
package metric
