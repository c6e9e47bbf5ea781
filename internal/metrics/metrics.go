// Package metrics exposes Prometheus instruments for saves, backups and imports.
//
// All observation methods are nil-safe so components can run without metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gko"

// Save outcomes.
const (
	SaveOK            = "ok"
	SaveDumpMismatch  = "dump_mismatch"
	SavePostMismatch  = "post_save_mismatch"
	SaveError         = "error"
	BackupCreated     = "created"
	BackupSkipped     = "skipped"
	ImportFormatError = "error"
)

// Metrics holds the collectors.
type Metrics struct {
	Saves        *prometheus.CounterVec
	SaveDuration prometheus.Histogram
	Backups      *prometheus.CounterVec
	Imports      *prometheus.CounterVec
	Extractions  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save attempts by outcome.",
		}, []string{"outcome"}),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Duration of save attempts, verification included.",
			Buckets:   prometheus.DefBuckets,
		}),
		Backups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backups taken when opening containers, by result.",
		}, []string{"result"}),
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imports by detected format.",
		}, []string{"format"}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Container extractions by result.",
		}, []string{"result"}),
	}
}

// ObserveSave records one save attempt.
func (m *Metrics) ObserveSave(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(outcome).Inc()
	m.SaveDuration.Observe(d.Seconds())
}

// ObserveBackup records whether a backup was created or already present.
func (m *Metrics) ObserveBackup(result string) {
	if m == nil {
		return
	}
	m.Backups.WithLabelValues(result).Inc()
}

// ObserveImport records an import by format, or "error" when err is set.
func (m *Metrics) ObserveImport(format string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		format = ImportFormatError
	}
	m.Imports.WithLabelValues(format).Inc()
}

// ObserveExtraction records an archive extraction.
func (m *Metrics) ObserveExtraction(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Extractions.WithLabelValues(result).Inc()
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
