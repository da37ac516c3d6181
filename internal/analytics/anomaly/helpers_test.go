package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raold/second-brain-sub006/internal/analytics"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesEvery builds a series of values spaced step apart from testStart.
func seriesEvery(mt analytics.MetricType, step time.Duration, values ...float64) *analytics.MetricSeries {
	points := make([]analytics.MetricPoint, len(values))
	for i, v := range values {
		points[i] = analytics.MetricPoint{Timestamp: testStart.Add(time.Duration(i) * step), Value: v}
	}
	return analytics.NewMetricSeries(mt, analytics.GranularityHour, points)
}

func hourly(values ...float64) *analytics.MetricSeries {
	return seriesEvery(analytics.MetricTypeMemoryCreation, time.Hour, values...)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// patternSeries is 14 days of hourly data where hour h reads 50+h, except
// hour 14 which reads 100 and breakValue on day 7.
func patternSeries(breakValue float64) *analytics.MetricSeries {
	var values []float64
	for day := 0; day < 14; day++ {
		for hour := 0; hour < 24; hour++ {
			v := 50 + float64(hour)
			if hour == 14 {
				v = 100
				if day == 7 {
					v = breakValue
				}
			}
			values = append(values, v)
		}
	}
	return hourly(values...)
}

func assertBounded(t *testing.T, anomalies []Anomaly) {
	t.Helper()
	for _, a := range anomalies {
		assert.GreaterOrEqual(t, a.Severity, 0.0, "severity of %s", a.ID)
		assert.LessOrEqual(t, a.Severity, 1.0, "severity of %s", a.ID)
		assert.GreaterOrEqual(t, a.Confidence, 0.0, "confidence of %s", a.ID)
		assert.LessOrEqual(t, a.Confidence, 1.0, "confidence of %s", a.ID)
	}
}
