// Package metrics records run outcomes as Prometheus series and writes them
// to a node-exporter textfile after each run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

const namespace = "kokkaisync"

// Recorder holds the series for one process.
type Recorder struct {
	Rows        *prometheus.CounterVec
	Fetched     *prometheus.CounterVec
	Malformed   *prometheus.CounterVec
	Linked      prometheus.Counter
	NewsNew     prometheus.Counter
	RunDuration *prometheus.GaugeVec
	LastRun     *prometheus.GaugeVec
	LastSuccess prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a recorder on its own registry.
func New() *Recorder {
	m := &Recorder{registry: prometheus.NewRegistry()}

	m.Rows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows handled by the reconciler by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)
	m.Fetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Source records read by source",
		},
		[]string{"source"},
	)
	m.Malformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_malformed_total",
			Help:      "Source records skipped during normalization by source",
		},
		[]string{"source"},
	)
	m.Linked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "speeches_linked_total",
		Help:      "Speeches attributed to a legislator",
	})
	m.NewsNew = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "news_articles_new_total",
		Help:      "News articles stored",
	})
	m.RunDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run by kind",
		},
		[]string{"kind"},
	)
	m.LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished by kind and status",
		},
		[]string{"kind", "status"},
	)
	m.LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last run that finished without errors",
	})

	m.registry.MustRegister(
		m.Rows, m.Fetched, m.Malformed, m.Linked, m.NewsNew,
		m.RunDuration, m.LastRun, m.LastSuccess,
	)
	return m
}

// ObserveCounts adds per-entity outcome counts.
func (m *Recorder) ObserveCounts(counts []database.EntityCounts) {
	for _, c := range counts {
		m.add(c.Entity, "inserted", c.Inserted)
		m.add(c.Entity, "updated", c.Updated)
		m.add(c.Entity, "unchanged", c.Unchanged)
		m.add(c.Entity, "dropped", c.Dropped)
		m.add(c.Entity, "failed", c.Failed)
	}
}

func (m *Recorder) add(entity, outcome string, n int) {
	if n > 0 {
		m.Rows.WithLabelValues(entity, outcome).Add(float64(n))
	}
}

// ObserveReport records a finished run report.
func (m *Recorder) ObserveReport(r database.RunReport, finished time.Time) {
	source := r.Kind
	if r.Fetched > 0 {
		m.Fetched.WithLabelValues(source).Add(float64(r.Fetched))
	}
	if r.Malformed > 0 {
		m.Malformed.WithLabelValues(source).Add(float64(r.Malformed))
	}
	if r.Linked > 0 {
		m.Linked.Add(float64(r.Linked))
	}
	m.ObserveCounts(r.Counts)

	if started, err := time.Parse(time.RFC3339, r.StartedAt); err == nil {
		m.RunDuration.WithLabelValues(r.Kind).Set(finished.Sub(started).Seconds())
	}
	m.LastRun.WithLabelValues(r.Kind, r.Status).Set(float64(finished.Unix()))
	if r.Status == "ok" {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes every series to path atomically. An empty path is a
// no-op.
func (m *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (m *Recorder) Registry() *prometheus.Registry {
	return m.registry
}
