package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Detector run statuses.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Anomaly detection metrics
var (
	DetectorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_detector_runs_total",
			Help: "Total number of detector runs",
		},
		[]string{"detector", "status"},
	)

	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anomaly_detector_duration_seconds",
			Help:    "Detector run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
		[]string{"detector"},
	)

	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_candidates_total",
			Help: "Total number of anomaly candidates produced by detectors",
		},
		[]string{"detector", "anomaly_type"},
	)

	MergedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_merged_total",
			Help: "Total number of anomalies returned after merging",
		},
		[]string{"metric_type"},
	)

	DetectionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_detection_requests_total",
			Help: "Total number of ensemble detection requests",
		},
		[]string{"status"},
	)
)
