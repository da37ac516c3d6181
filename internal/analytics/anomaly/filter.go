package anomaly

import (
	"time"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

// Filter narrows a ranked anomaly list for presentation. Zero-valued fields
// match everything.
type Filter struct {
	MetricTypes  []analytics.MetricType
	AnomalyTypes []AnomalyType
	MinSeverity  float64
	Since        time.Time
}

// Apply returns the anomalies matching f, preserving order.
func (f Filter) Apply(anomalies []Anomaly) []Anomaly {
	out := make([]Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// Matches reports whether a passes every criterion of f.
func (f Filter) Matches(a Anomaly) bool {
	if len(f.MetricTypes) > 0 && !contains(f.MetricTypes, a.MetricType) {
		return false
	}
	if len(f.AnomalyTypes) > 0 && !contains(f.AnomalyTypes, a.Type) {
		return false
	}
	if a.Severity < f.MinSeverity {
		return false
	}
	if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
