package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

const (
	frequencyConfidence    = 0.7
	frequencySeverityScale = 4.0
	frequencyMinWindows    = 3
)

// FrequencyDetector treats a series as an event stream and flags fixed time
// windows whose point count is unusual. Values are ignored.
type FrequencyDetector struct {
	cfg FrequencyConfig
}

// NewFrequencyDetector creates a frequency detector.
func NewFrequencyDetector(cfg FrequencyConfig) *FrequencyDetector {
	def := DefaultConfig().Frequency
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = def.WindowMinutes
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = def.MinPoints
	}
	return &FrequencyDetector{cfg: cfg}
}

// Name returns the detector name.
func (d *FrequencyDetector) Name() string { return "frequency" }

// Detect counts points per window. Windows are aligned to the first point's
// timestamp truncated to the window length; only non-empty windows take part
// in the statistics.
func (d *FrequencyDetector) Detect(series *analytics.MetricSeries) ([]Anomaly, error) {
	if series.Len() < d.cfg.MinPoints {
		return nil, nil
	}

	window := time.Duration(d.cfg.WindowMinutes) * time.Minute
	stamps := make([]time.Time, series.Len())
	for i, p := range series.Points {
		stamps[i] = p.Timestamp
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	origin := stamps[0].Truncate(window)
	counts := make(map[int64]int)
	for _, ts := range stamps {
		counts[int64(ts.Sub(origin)/window)]++
	}
	if len(counts) < frequencyMinWindows {
		return nil, nil
	}

	indexes := make([]int64, 0, len(counts))
	freqs := make([]float64, 0, len(counts))
	for idx := range counts {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	for _, idx := range indexes {
		freqs = append(freqs, float64(counts[idx]))
	}

	mean, std := analytics.MeanStdDev(freqs)
	if std == 0 {
		return nil, nil
	}

	var found []Anomaly
	for i, idx := range indexes {
		freq := freqs[i]
		z := math.Abs(freq-mean) / std
		if z <= d.cfg.ZThreshold {
			continue
		}
		start := origin.Add(time.Duration(idx) * window)
		found = append(found, newAnomaly(
			series.MetricType, AnomalyTypeUnusualFrequency, MethodFrequency, start,
			math.Min(z/frequencySeverityScale, 1.0),
			frequencyConfidence,
			mean, freq,
			fmt.Sprintf("Unusual frequency: %d events in %d-minute window starting %s (usual %.2f)",
				int(freq), d.cfg.WindowMinutes, start.Format(time.RFC3339), mean),
			map[string]interface{}{
				"window_start":   start,
				"window_end":     start.Add(window),
				"window_minutes": d.cfg.WindowMinutes,
				"z_score":        z,
			},
		))
	}
	return found, nil
}
