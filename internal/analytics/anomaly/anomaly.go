// Package anomaly scores a metric series for outliers, band violations,
// cyclical pattern breaks and unusual event frequency.
//
// Detection Algorithms:
//
//  1. Statistical: global z-score and interquartile-range outliers
//  2. Moving average: trailing-window mean ± k·stddev bands
//  3. Pattern break: deviation from the hour-of-day and
//     (day-of-week, hour) baselines of the series itself
//  4. Frequency: unusual number of points per fixed time window
//
// Every detector is stateless and works on its own input, so detectors can run
// on any goroutine without synchronization. The Ensemble runs all of them,
// merges candidates that agree on (metric, timestamp, type) and ranks the
// result by severity.
package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

// AnomalyType represents the type of anomaly detected
type AnomalyType string

const (
	AnomalyTypeSpike            AnomalyType = "spike"
	AnomalyTypeDrop             AnomalyType = "drop"
	AnomalyTypePatternBreak     AnomalyType = "pattern_break"
	AnomalyTypeThresholdBreach  AnomalyType = "threshold_breach"
	AnomalyTypeUnusualFrequency AnomalyType = "unusual_frequency"
)

// ParseAnomalyType validates s as an AnomalyType.
func ParseAnomalyType(s string) (AnomalyType, error) {
	switch t := AnomalyType(s); t {
	case AnomalyTypeSpike, AnomalyTypeDrop, AnomalyTypePatternBreak,
		AnomalyTypeThresholdBreach, AnomalyTypeUnusualFrequency:
		return t, nil
	}
	return "", fmt.Errorf("unknown anomaly type %q", s)
}

// Detection methods recorded in Anomaly.Metadata["detection_method"].
const (
	MethodZScore        = "zscore"
	MethodIQR           = "iqr"
	MethodMovingAverage = "moving_average"
	MethodDailyPattern  = "daily_pattern"
	MethodWeeklyPattern = "weekly_pattern"
	MethodFrequency     = "frequency"
)

// Metadata keys set by detectors and the merge step.
const (
	MetaDetectionMethod  = "detection_method"
	MetaDetectionCount   = "detection_count"
	MetaDetectionMethods = "detection_methods"
)

// Anomaly is a single detected deviation. Severity and Confidence are in [0, 1].
type Anomaly struct {
	ID            string                 `json:"id"`
	MetricType    analytics.MetricType   `json:"metric_type"`
	Type          AnomalyType            `json:"anomaly_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Severity      float64                `json:"severity"`
	ExpectedValue float64                `json:"expected_value"`
	ActualValue   float64                `json:"actual_value"`
	Confidence    float64                `json:"confidence"`
	Description   string                 `json:"description"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// DetectionMethod returns the method that produced the anomaly, if recorded.
func (a Anomaly) DetectionMethod() string {
	m, _ := a.Metadata[MetaDetectionMethod].(string)
	return m
}

// DetectionCount returns how many detections were merged into a (1 when unmerged).
func (a Anomaly) DetectionCount() int {
	if n, ok := a.Metadata[MetaDetectionCount].(int); ok {
		return n
	}
	return 1
}

// Detector produces anomaly candidates for one series.
//
// Insufficient data and zero variance are not errors: Detect returns an empty
// result. An error means the detector itself failed.
type Detector interface {
	Name() string
	Detect(series *analytics.MetricSeries) ([]Anomaly, error)
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("second-brain/anomaly"))

// newAnomaly builds a candidate whose ID is derived from its content, so the
// same input always yields the same IDs.
func newAnomaly(metricType analytics.MetricType, typ AnomalyType, method string, ts time.Time,
	severity, confidence, expected, actual float64, description string, meta map[string]interface{}) Anomaly {

	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta[MetaDetectionMethod] = method

	name := fmt.Sprintf("%s|%d|%s|%s|%g", metricType, ts.UnixNano(), typ, method, actual)
	return Anomaly{
		ID:            uuid.NewSHA1(idNamespace, []byte(name)).String(),
		MetricType:    metricType,
		Type:          typ,
		Timestamp:     ts,
		Severity:      clamp01(severity),
		ExpectedValue: expected,
		ActualValue:   actual,
		Confidence:    clamp01(confidence),
		Description:   description,
		Metadata:      meta,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}

// direction maps a value above the reference to a spike and anything else to a drop.
func direction(value, reference float64) AnomalyType {
	if value > reference {
		return AnomalyTypeSpike
	}
	return AnomalyTypeDrop
}
