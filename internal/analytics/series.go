package analytics

import (
	"fmt"
	"math"
	"time"
)

// Package analytics holds the metric data model shared by the detectors.
//
// A MetricSeries is built by the caller for one request and is treated as
// read-only by everything in this module.

// MetricType identifies the metric a series describes.
type MetricType string

const (
	MetricTypeMemoryCreation  MetricType = "memory_creation"
	MetricTypeMemoryAccess    MetricType = "memory_access"
	MetricTypeSearchQueries   MetricType = "search_queries"
	MetricTypeResponseTime    MetricType = "response_time"
	MetricTypeErrorRate       MetricType = "error_rate"
	MetricTypeSystemLoad      MetricType = "system_load"
	MetricTypeUserActivity    MetricType = "user_activity"
	MetricTypeKnowledgeGrowth MetricType = "knowledge_growth"
)

var metricTypes = map[MetricType]bool{
	MetricTypeMemoryCreation:  true,
	MetricTypeMemoryAccess:    true,
	MetricTypeSearchQueries:   true,
	MetricTypeResponseTime:    true,
	MetricTypeErrorRate:       true,
	MetricTypeSystemLoad:      true,
	MetricTypeUserActivity:    true,
	MetricTypeKnowledgeGrowth: true,
}

// ParseMetricType validates s as a MetricType.
func ParseMetricType(s string) (MetricType, error) {
	mt := MetricType(s)
	if !metricTypes[mt] {
		return "", fmt.Errorf("unknown metric type %q", s)
	}
	return mt, nil
}

// Granularity is the nominal spacing of a series.
type Granularity string

const (
	GranularityMinute  Granularity = "minute"
	GranularityHour    Granularity = "hour"
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

var granularities = map[Granularity]bool{
	GranularityMinute:  true,
	GranularityHour:    true,
	GranularityDay:     true,
	GranularityWeek:    true,
	GranularityMonth:   true,
	GranularityQuarter: true,
	GranularityYear:    true,
}

// ParseGranularity validates s as a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if !granularities[g] {
		return "", fmt.Errorf("unknown granularity %q", s)
	}
	return g, nil
}

// TrendDirection classifies the overall movement of a series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendVolatile   TrendDirection = "volatile"
)

const (
	volatileCV     = 0.5
	stableSlopeAbs = 0.01
)

// MetricPoint is a single timestamped observation.
type MetricPoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Value     float64                `json:"value"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// MetricSeries is a chronologically ordered sequence of points for one metric.
type MetricSeries struct {
	MetricType  MetricType    `json:"metric_type"`
	Points      []MetricPoint `json:"points"`
	Granularity Granularity   `json:"granularity"`
}

// NewMetricSeries creates a series over a copy of points.
func NewMetricSeries(metricType MetricType, granularity Granularity, points []MetricPoint) *MetricSeries {
	cp := make([]MetricPoint, len(points))
	copy(cp, points)
	return &MetricSeries{
		MetricType:  metricType,
		Points:      cp,
		Granularity: granularity,
	}
}

// Len returns the number of points.
func (s *MetricSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Values returns the point values in series order.
func (s *MetricSeries) Values() []float64 {
	values := make([]float64, s.Len())
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Average is the arithmetic mean of the point values (0 for an empty series).
func (s *MetricSeries) Average() float64 {
	return Mean(s.Values())
}

// Trend classifies the series: a coefficient of variation above 0.5 is
// volatile, otherwise the regression slope decides between stable,
// increasing and decreasing.
func (s *MetricSeries) Trend() TrendDirection {
	values := s.Values()
	if len(values) < 2 {
		return TrendStable
	}

	if stats := Summarize(values); stats.CoefficientOfVar > volatileCV {
		return TrendVolatile
	}

	m := slope(values)
	switch {
	case math.Abs(m) < stableSlopeAbs:
		return TrendStable
	case m > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}
