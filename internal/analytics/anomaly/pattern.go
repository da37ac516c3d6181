package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

const (
	dailyPatternConfidence  = 0.65
	weeklyPatternConfidence = 0.6

	dailyMinGroup  = 2
	weeklyMinGroup = 3

	patternSeverityScale = 5.0
)

// PatternBreakDetector learns hour-of-day and (weekday, hour) baselines from
// the series itself and flags points that break their own cycle. A value can
// be normal for the series as a whole and still be far off for its hour.
type PatternBreakDetector struct {
	cfg PatternConfig
}

// NewPatternBreakDetector creates a pattern-break detector.
func NewPatternBreakDetector(cfg PatternConfig) *PatternBreakDetector {
	def := DefaultConfig().Pattern
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.DailyMinPoints <= 0 {
		cfg.DailyMinPoints = def.DailyMinPoints
	}
	if cfg.WeeklyMinPoints <= 0 {
		cfg.WeeklyMinPoints = def.WeeklyMinPoints
	}
	return &PatternBreakDetector{cfg: cfg}
}

// Name returns the detector name.
func (d *PatternBreakDetector) Name() string { return "pattern_break" }

// Detect runs the daily pass, and the weekly pass when the series is long enough.
func (d *PatternBreakDetector) Detect(series *analytics.MetricSeries) ([]Anomaly, error) {
	n := series.Len()
	if n < d.cfg.DailyMinPoints {
		return nil, nil
	}

	found := d.daily(series)
	if n >= d.cfg.WeeklyMinPoints {
		found = append(found, d.weekly(series)...)
	}
	return found, nil
}

type baseline struct {
	mean float64
	std  float64
	size int
}

type weekSlot struct {
	day  time.Weekday
	hour int
}

func (d *PatternBreakDetector) daily(series *analytics.MetricSeries) []Anomaly {
	baselines := groupBaselines(series, dailyMinGroup, func(t time.Time) int { return t.Hour() })

	var found []Anomaly
	for _, p := range series.Points {
		hour := p.Timestamp.Hour()
		b, ok := baselines[hour]
		if !ok || b.std == 0 {
			continue
		}
		z := math.Abs(p.Value-b.mean) / b.std
		if z <= d.cfg.ZThreshold {
			continue
		}
		found = append(found, newAnomaly(
			series.MetricType, AnomalyTypePatternBreak, MethodDailyPattern, p.Timestamp,
			math.Min(z/patternSeverityScale, 1.0),
			dailyPatternConfidence,
			b.mean, p.Value,
			fmt.Sprintf("Daily pattern break at %02d:00: value %.2f vs usual %.2f (%.2f standard deviations)",
				hour, p.Value, b.mean, z),
			map[string]interface{}{
				"hour":       hour,
				"z_score":    z,
				"group_size": b.size,
			},
		))
	}
	return found
}

func (d *PatternBreakDetector) weekly(series *analytics.MetricSeries) []Anomaly {
	slotOf := func(t time.Time) weekSlot { return weekSlot{day: t.Weekday(), hour: t.Hour()} }
	baselines := groupBaselines(series, weeklyMinGroup, slotOf)

	var found []Anomaly
	for _, p := range series.Points {
		slot := slotOf(p.Timestamp)
		b, ok := baselines[slot]
		if !ok || b.std == 0 {
			continue
		}
		z := math.Abs(p.Value-b.mean) / b.std
		if z <= d.cfg.ZThreshold {
			continue
		}
		found = append(found, newAnomaly(
			series.MetricType, AnomalyTypePatternBreak, MethodWeeklyPattern, p.Timestamp,
			math.Min(z/patternSeverityScale, 1.0),
			weeklyPatternConfidence,
			b.mean, p.Value,
			fmt.Sprintf("Weekly pattern break on %s at %02d:00: value %.2f vs usual %.2f (%.2f standard deviations)",
				slot.day, slot.hour, p.Value, b.mean, z),
			map[string]interface{}{
				"day_of_week": slot.day.String(),
				"hour":        slot.hour,
				"z_score":     z,
				"group_size":  b.size,
			},
		))
	}
	return found
}

// groupBaselines buckets point values by key and keeps mean/std for buckets
// with at least minSize observations.
func groupBaselines[K comparable](series *analytics.MetricSeries, minSize int, key func(time.Time) K) map[K]baseline {
	groups := make(map[K][]float64)
	for _, p := range series.Points {
		k := key(p.Timestamp)
		groups[k] = append(groups[k], p.Value)
	}

	baselines := make(map[K]baseline, len(groups))
	for k, values := range groups {
		if len(values) < minSize {
			continue
		}
		mean, std := analytics.MeanStdDev(values)
		baselines[k] = baseline{mean: mean, std: std, size: len(values)}
	}
	return baselines
}
