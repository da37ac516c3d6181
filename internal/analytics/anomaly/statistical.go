package anomaly

import (
	"fmt"
	"math"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

const (
	zScoreConfidence = 0.8
	iqrConfidence    = 0.75
)

// StatisticalDetector flags global outliers with a z-score pass and an IQR
// pass over the whole series.
type StatisticalDetector struct {
	cfg StatisticalConfig
}

// NewStatisticalDetector creates a statistical detector.
func NewStatisticalDetector(cfg StatisticalConfig) *StatisticalDetector {
	def := DefaultConfig().Statistical
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.IQRMultiplier <= 0 {
		cfg.IQRMultiplier = def.IQRMultiplier
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = def.MinPoints
	}
	return &StatisticalDetector{cfg: cfg}
}

// Name returns the detector name.
func (d *StatisticalDetector) Name() string { return "statistical" }

// Detect runs both passes and drops IQR hits already reported by the z-score
// pass for the same point.
func (d *StatisticalDetector) Detect(series *analytics.MetricSeries) ([]Anomaly, error) {
	if series.Len() < d.cfg.MinPoints {
		return nil, nil
	}

	values := series.Values()
	found := d.zScore(series, values)
	found = append(found, d.iqr(series, values)...)
	return dedupePoints(found), nil
}

func (d *StatisticalDetector) zScore(series *analytics.MetricSeries, values []float64) []Anomaly {
	mean, std := analytics.MeanStdDev(values)
	if std == 0 {
		return nil
	}

	var found []Anomaly
	for _, p := range series.Points {
		z := math.Abs(p.Value-mean) / std
		if z <= d.cfg.ZThreshold {
			continue
		}
		typ := direction(p.Value, mean)
		found = append(found, newAnomaly(
			series.MetricType, typ, MethodZScore, p.Timestamp,
			math.Min(z/(2*d.cfg.ZThreshold), 1.0),
			zScoreConfidence,
			mean, p.Value,
			fmt.Sprintf("%s detected: value %.2f is %.2f standard deviations from mean %.2f", typ, p.Value, z, mean),
			map[string]interface{}{
				"z_score": z,
				"std_dev": std,
			},
		))
	}
	return found
}

func (d *StatisticalDetector) iqr(series *analytics.MetricSeries, values []float64) []Anomaly {
	sorted := analytics.Sorted(values)
	q1 := analytics.Percentile(sorted, 25)
	q3 := analytics.Percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - d.cfg.IQRMultiplier*iqr
	upper := q3 + d.cfg.IQRMultiplier*iqr
	expected := (q1 + q3) / 2

	var found []Anomaly
	for _, p := range series.Points {
		var distance float64
		switch {
		case p.Value > upper:
			distance = p.Value - upper
		case p.Value < lower:
			distance = lower - p.Value
		default:
			continue
		}

		// A collapsed band (IQR = 0) makes any excursion maximal.
		severity := 1.0
		if iqr > 0 {
			severity = math.Min(distance/iqr, 1.0)
		}

		typ := direction(p.Value, upper)
		found = append(found, newAnomaly(
			series.MetricType, typ, MethodIQR, p.Timestamp,
			severity,
			iqrConfidence,
			expected, p.Value,
			fmt.Sprintf("%s detected: value %.2f is outside the interquartile range [%.2f, %.2f]", typ, p.Value, lower, upper),
			map[string]interface{}{
				"q1":          q1,
				"q3":          q3,
				"iqr":         iqr,
				"lower_bound": lower,
				"upper_bound": upper,
			},
		))
	}
	return found
}

type pointKey struct {
	ts    int64
	value float64
}

// dedupePoints keeps the first anomaly reported for each (timestamp, value).
func dedupePoints(found []Anomaly) []Anomaly {
	if len(found) < 2 {
		return found
	}
	seen := make(map[pointKey]bool, len(found))
	out := found[:0]
	for _, a := range found {
		k := pointKey{ts: a.Timestamp.UnixNano(), value: a.ActualValue}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}
