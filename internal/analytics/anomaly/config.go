package anomaly

// StatisticalConfig tunes the global z-score / IQR detector.
type StatisticalConfig struct {
	ZThreshold    float64
	IQRMultiplier float64
	MinPoints     int
}

// MovingAverageConfig tunes the trailing-window band detector.
type MovingAverageConfig struct {
	WindowSize          int
	DeviationMultiplier float64
}

// PatternConfig tunes the cyclical baseline detector.
type PatternConfig struct {
	ZThreshold      float64
	DailyMinPoints  int
	WeeklyMinPoints int
}

// FrequencyConfig tunes the event-count detector.
type FrequencyConfig struct {
	WindowMinutes int
	ZThreshold    float64
	MinPoints     int
}

// Config holds parameters for every detector plus the ensemble.
type Config struct {
	Statistical   StatisticalConfig
	MovingAverage MovingAverageConfig
	Pattern       PatternConfig
	Frequency     FrequencyConfig

	// Sensitivity scales every candidate's confidence before merging.
	Sensitivity float64
	// CorroborationBoost multiplies the mean confidence of a merged group.
	CorroborationBoost float64
	// MaxConcurrency bounds concurrently analysed metrics; 0 means unbounded.
	MaxConcurrency int
}

// DefaultConfig returns the standard detector parameters.
func DefaultConfig() Config {
	return Config{
		Statistical: StatisticalConfig{
			ZThreshold:    3.0,
			IQRMultiplier: 1.5,
			MinPoints:     10,
		},
		MovingAverage: MovingAverageConfig{
			WindowSize:          10,
			DeviationMultiplier: 2.0,
		},
		Pattern: PatternConfig{
			ZThreshold:      3.0,
			DailyMinPoints:  48,
			WeeklyMinPoints: 168,
		},
		Frequency: FrequencyConfig{
			WindowMinutes: 60,
			ZThreshold:    2.5,
			MinPoints:     10,
		},
		Sensitivity:        1.0,
		CorroborationBoost: 1.2,
	}
}
