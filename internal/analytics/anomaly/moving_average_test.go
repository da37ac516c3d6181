package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageDetector_InsufficientData(t *testing.T) {
	d := NewMovingAverageDetector(DefaultConfig().MovingAverage)

	found, err := d.Detect(hourly(1, 2, 3, 4, 5, 6, 7, 8, 9))
	require.NoError(t, err)
	assert.Empty(t, found)

	// Exactly one window: nothing left to compare.
	found, err = d.Detect(hourly(1, 2, 3, 4, 5, 6, 7, 8, 9, 100))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMovingAverageDetector_ConstantSeries(t *testing.T) {
	d := NewMovingAverageDetector(DefaultConfig().MovingAverage)

	found, err := d.Detect(hourly(repeat(5.0, 20)...))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMovingAverageDetector_BandViolation(t *testing.T) {
	d := NewMovingAverageDetector(DefaultConfig().MovingAverage)

	values := make([]float64, 20)
	for i := range values {
		values[i] = 10 + float64(i%2)
	}
	values[15] = 40
	series := hourly(values...)

	found, err := d.Detect(series)
	require.NoError(t, err)
	require.Len(t, found, 1)

	a := found[0]
	assert.Equal(t, AnomalyTypeSpike, a.Type)
	assert.Equal(t, 40.0, a.ActualValue)
	assert.InDelta(t, 10.5, a.ExpectedValue, 1e-9)
	assert.Equal(t, 0.7, a.Confidence)
	assert.Equal(t, 1.0, a.Severity)
	assert.Equal(t, MethodMovingAverage, a.DetectionMethod())
	assert.True(t, a.Timestamp.Equal(series.Points[15].Timestamp))
}

func TestMovingAverageDetector_FlatWindowBreak(t *testing.T) {
	d := NewMovingAverageDetector(MovingAverageConfig{WindowSize: 5, DeviationMultiplier: 2})

	found, err := d.Detect(hourly(8, 8, 8, 8, 8, 3))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, AnomalyTypeDrop, found[0].Type)
	// Zero spread in the window gives the fixed mid severity.
	assert.Equal(t, 0.5, found[0].Severity)
}

func TestNewMovingAverageDetector_Defaults(t *testing.T) {
	d := NewMovingAverageDetector(MovingAverageConfig{WindowSize: 1})
	assert.Equal(t, 10, d.cfg.WindowSize)
	assert.Equal(t, 2.0, d.cfg.DeviationMultiplier)
}
