// Package metrics holds the Prometheus collectors of equipkeeper.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/equipkeeper/internal/filex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	CascadeDeleted      *prometheus.CounterVec
	CascadeRetries      prometheus.Counter
	CascadeDuration     prometheus.Histogram
	InvariantViolations *prometheus.CounterVec
	TaskLevels          *prometheus.CounterVec
	AccessDenied        *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CascadeDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "equipkeeper_cascade_deleted_total",
			Help: "Entities removed by cascading deletes, by kind.",
		}, []string{"kind"}),

		CascadeRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "equipkeeper_cascade_retries_total",
			Help: "Cascade attempts that failed and were retried.",
		}),

		CascadeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "equipkeeper_cascade_duration_seconds",
			Help:    "Duration of a whole cascading delete, retries included.",
			Buckets: prometheus.DefBuckets,
		}),

		InvariantViolations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "equipkeeper_invariant_violations_total",
			Help: "Broken referential or ownership invariants found at runtime.",
		}, []string{"entity"}),

		TaskLevels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "equipkeeper_task_levels_total",
			Help: "Computed task alert levels.",
		}, []string{"level"}),

		AccessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "equipkeeper_access_denied_total",
			Help: "Rejected operations, by reason.",
		}, []string{"reason"}),
	}
}

// ObserveLevel counts one computed level.
func (m *Metrics) ObserveLevel(level int) {
	m.TaskLevels.WithLabelValues(strconv.Itoa(level)).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile dumps the registry for the node exporter textfile
// collector. Used by short-lived CLI runs. Missing directories are created.
func (m *Metrics) WriteTextfile(path string) error {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return err
	}
	return prometheus.WriteToTextfile(abs, m.registry)
}
