// Package metrics exposes Prometheus collectors for the service log.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carsservicelog"

// Load results.
const (
	LoadOK      = "ok"
	LoadMissing = "missing"
	LoadInvalid = "invalid"
	LoadError   = "error"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	storeWrites  *prometheus.CounterVec
	storeLoads   *prometheus.CounterVec
	records      *prometheus.GaugeVec
	alerts       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Writes of persisted records by record and result.",
		}, []string{"record", "result"}),
		storeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_loads_total",
			Help:      "Loads of persisted records by record and result.",
		}, []string{"record", "result"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records currently held in memory by collection.",
		}, []string{"collection"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Due alerts published by status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.storeWrites,
		m.storeLoads,
		m.records,
		m.alerts,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStoreWrite counts a write of record, failed when err is non-nil.
func (m *Metrics) ObserveStoreWrite(record string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(record, result).Inc()
}

// ObserveStoreLoad counts a load of record with one of the Load* results.
func (m *Metrics) ObserveStoreLoad(record, result string) {
	if m == nil {
		return
	}
	m.storeLoads.WithLabelValues(record, result).Inc()
}

// SetRecords sets the in-memory size of a collection.
func (m *Metrics) SetRecords(collection string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(collection).Set(float64(n))
}

// ObserveAlert counts a published alert.
func (m *Metrics) ObserveAlert(status string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest counts a served request.
func (m *Metrics) ObserveHTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
