// Package metrics exposes Prometheus instrumentation for conversion and
// upload activity. Counters are registered on the default registry so batch
// runs can dump them and long-lived callers can scrape them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion metrics
var (
	// ConversionsTotal tracks converted documents by status.
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarif_conversions_total",
			Help: "Total number of SARIF document conversions by status",
		},
		[]string{"status"},
	)

	// ConversionDuration tracks per-document conversion duration.
	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sarif_conversion_duration_seconds",
			Help:    "SARIF document conversion duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// FindingsConverted tracks emitted findings by severity.
	FindingsConverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converted_findings_total",
			Help: "Total number of findings emitted by severity",
		},
		[]string{"severity"},
	)

	// DataSourcesEmitted tracks emitted data sources.
	DataSourcesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "converted_data_sources_total",
			Help: "Total number of data sources emitted",
		},
	)
)

// Upload metrics
var (
	// UploadsTotal tracks upload attempts by status.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findings_uploads_total",
			Help: "Total number of findings uploads by status",
		},
		[]string{"status"},
	)

	// UploadDuration tracks upload duration.
	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "findings_upload_duration_seconds",
			Help:    "Findings upload duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
)
