package anomaly

import (
	"fmt"
	"math"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

const movingAverageConfidence = 0.7

// MovingAverageDetector flags points that leave the mean ± k·stddev band of
// the trailing window that precedes them.
type MovingAverageDetector struct {
	cfg MovingAverageConfig
}

// NewMovingAverageDetector creates a moving-average detector. A window shorter
// than two points has no spread and falls back to the default.
func NewMovingAverageDetector(cfg MovingAverageConfig) *MovingAverageDetector {
	def := DefaultConfig().MovingAverage
	if cfg.WindowSize < 2 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.DeviationMultiplier <= 0 {
		cfg.DeviationMultiplier = def.DeviationMultiplier
	}
	return &MovingAverageDetector{cfg: cfg}
}

// Name returns the detector name.
func (d *MovingAverageDetector) Name() string { return "moving_average" }

// Detect compares each point after the first window against the band built
// from the window before it. The current point never contributes to its own band.
func (d *MovingAverageDetector) Detect(series *analytics.MetricSeries) ([]Anomaly, error) {
	w := d.cfg.WindowSize
	if series.Len() < w {
		return nil, nil
	}

	k := d.cfg.DeviationMultiplier
	values := series.Values()

	var found []Anomaly
	for i := w; i < len(values); i++ {
		mean, std := analytics.MeanStdDev(values[i-w : i])
		upper := mean + k*std
		lower := mean - k*std

		v := values[i]
		if v <= upper && v >= lower {
			continue
		}

		severity := 0.5
		if std > 0 {
			severity = math.Min(math.Abs(v-mean)/std/(2*k), 1.0)
		}

		typ := direction(v, mean)
		found = append(found, newAnomaly(
			series.MetricType, typ, MethodMovingAverage, series.Points[i].Timestamp,
			severity,
			movingAverageConfidence,
			mean, v,
			fmt.Sprintf("%s detected: value %.2f is outside the %d-point moving average band [%.2f, %.2f]", typ, v, w, lower, upper),
			map[string]interface{}{
				"window_size": w,
				"lower_band":  lower,
				"upper_band":  upper,
				"std_dev":     std,
			},
		))
	}
	return found, nil
}
