package config

import "github.com/raold/second-brain-sub006/internal/analytics/anomaly"

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	det := anomaly.DefaultConfig()

	// Detection defaults
	cfg.Detection.Statistical.ZThreshold = det.Statistical.ZThreshold
	cfg.Detection.Statistical.IQRMultiplier = det.Statistical.IQRMultiplier
	cfg.Detection.Statistical.MinPoints = det.Statistical.MinPoints

	cfg.Detection.MovingAverage.WindowSize = det.MovingAverage.WindowSize
	cfg.Detection.MovingAverage.DeviationMultiplier = det.MovingAverage.DeviationMultiplier

	cfg.Detection.Pattern.ZThreshold = det.Pattern.ZThreshold
	cfg.Detection.Pattern.DailyMinPoints = det.Pattern.DailyMinPoints
	cfg.Detection.Pattern.WeeklyMinPoints = det.Pattern.WeeklyMinPoints

	cfg.Detection.Frequency.WindowMinutes = det.Frequency.WindowMinutes
	cfg.Detection.Frequency.ZThreshold = det.Frequency.ZThreshold
	cfg.Detection.Frequency.MinPoints = det.Frequency.MinPoints

	// Ensemble defaults
	cfg.Ensemble.Sensitivity = det.Sensitivity
	cfg.Ensemble.CorroborationBoost = det.CorroborationBoost
	cfg.Ensemble.MaxConcurrency = 0 // unbounded

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 10
	cfg.Logging.MaxAgeDays = 30
	cfg.Logging.Compress = true

	return cfg
}
