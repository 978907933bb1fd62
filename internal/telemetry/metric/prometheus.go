package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/storage"
)

const namespace = "sheetsync"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine
	Operations        *prometheus.HistogramVec
	CacheLookups      *prometheus.CounterVec
	SyncDecisions     *prometheus.CounterVec
	UpdateOutcomes    *prometheus.CounterVec
	RowsAppendedTotal prometheus.Counter

	// Remote store
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	Leases         *prometheus.CounterVec
}

var (
	_ service.Observer       = (*Registry)(nil)
	_ storage.RemoteObserver = (*Registry)(nil)
)

// NewRegistry creates the metric set and registers it, together with the
// Go runtime and process collectors, on a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency by operation and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by entry and result.",
		}, []string{"entry", "result"}),
		SyncDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_decisions_total",
			Help:      "Branches taken when serving changes.",
		}, []string{"decision"}),
		UpdateOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_outcomes_total",
			Help:      "Evaluated cell updates by result.",
		}, []string{"result"}),
		RowsAppendedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_appended_total",
			Help:      "Rows appended to sheets.",
		}),
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls to the tabular store by operation and result.",
		}, []string{"op", "result"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of calls to the tabular store.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		Leases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_leases_total",
			Help:      "Credential leases by client source (cached or new).",
		}, []string{"source"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.Operations,
		r.CacheLookups,
		r.SyncDecisions,
		r.UpdateOutcomes,
		r.RowsAppendedTotal,
		r.RemoteCalls,
		r.RemoteDuration,
		r.Leases,
	)
	return r
}

// MustRegister adds extra collectors, such as a StateCollector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route string, code int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// CacheLookup implements service.Observer.
func (r *Registry) CacheLookup(entry string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(entry, result).Inc()
}

// SyncDecision implements service.Observer.
func (r *Registry) SyncDecision(decision string) {
	r.SyncDecisions.WithLabelValues(decision).Inc()
}

// UpdateOutcome implements service.Observer.
func (r *Registry) UpdateOutcome(result string) {
	r.UpdateOutcomes.WithLabelValues(result).Inc()
}

// RowsAppended implements service.Observer.
func (r *Registry) RowsAppended(n int) {
	r.RowsAppendedTotal.Add(float64(n))
}

// Operation implements service.Observer.
func (r *Registry) Operation(op string, d time.Duration, err error) {
	r.Operations.WithLabelValues(op, result(err)).Observe(d.Seconds())
}

// RemoteCall implements storage.RemoteObserver.
func (r *Registry) RemoteCall(op string, d time.Duration, err error) {
	r.RemoteCalls.WithLabelValues(op, result(err)).Inc()
	r.RemoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// LeaseAcquired implements storage.RemoteObserver.
func (r *Registry) LeaseAcquired(cached bool) {
	source := "new"
	if cached {
		source = "cached"
	}
	r.Leases.WithLabelValues(source).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
