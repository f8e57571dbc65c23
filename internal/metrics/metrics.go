// Package metrics exposes prometheus collectors for tracker operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels
const (
	ResultOK           = "ok"
	ResultUnauthorized = "unauthorized"
	ResultNotFound     = "not_found"
	ResultConflict     = "conflict"
	ResultInvalid      = "invalid"
	ResultError        = "error"
)

// Recorder counts operations by name and result. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry, including Go runtime collectors
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_operations_total",
		Help: "Core tracker operations by name and result.",
	}, []string{"operation", "result"})
	reg.MustRegister(ops, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Recorder{registry: reg, operations: ops}
}

// Observe counts one call of operation with the given result label
func (r *Recorder) Observe(operation, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, result).Inc()
}

// Operations exposes the counter vector, mainly for tests
func (r *Recorder) Operations() *prometheus.CounterVec {
	return r.operations
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
