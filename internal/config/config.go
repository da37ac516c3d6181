// Package config provides configuration management for the anomaly engine.
//
// Configuration sources, highest priority first:
//
//	1. Environment variables (ANOMALY_* prefix, "." replaced by "_",
//	   e.g. ANOMALY_ENSEMBLE_SENSITIVITY)
//	2. YAML config file
//	3. Built-in defaults
//
// Main configuration sections:
//
//	detection.statistical     z_threshold, iqr_multiplier, min_points
//	detection.moving_average  window_size, deviation_multiplier
//	detection.pattern         z_threshold, daily_min_points, weekly_min_points
//	detection.frequency       window_minutes, z_threshold, min_points
//	ensemble                  sensitivity (0, 2], corroboration_boost,
//	                          max_concurrency (0 = unbounded)
//	logging                   level, format (json|console), file,
//	                          max_size_mb, max_backups, max_age_days, compress
package config

import (
	"context"

	"github.com/raold/second-brain-sub006/internal/analytics/anomaly"
	"github.com/raold/second-brain-sub006/internal/logging"
)

// Config struct contains all configuration fields
type Config struct {
	Detection struct {
		Statistical struct {
			ZThreshold    float64
			IQRMultiplier float64
			MinPoints     int
		}
		MovingAverage struct {
			WindowSize          int
			DeviationMultiplier float64
		}
		Pattern struct {
			ZThreshold      float64
			DailyMinPoints  int
			WeeklyMinPoints int
		}
		Frequency struct {
			WindowMinutes int
			ZThreshold    float64
			MinPoints     int
		}
	}

	Ensemble struct {
		Sensitivity        float64
		CorroborationBoost float64
		MaxConcurrency     int
	}

	Logging struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
}

// AnomalyConfig maps the detection and ensemble sections onto detector parameters.
func (c *Config) AnomalyConfig() anomaly.Config {
	d := c.Detection
	return anomaly.Config{
		Statistical: anomaly.StatisticalConfig{
			ZThreshold:    d.Statistical.ZThreshold,
			IQRMultiplier: d.Statistical.IQRMultiplier,
			MinPoints:     d.Statistical.MinPoints,
		},
		MovingAverage: anomaly.MovingAverageConfig{
			WindowSize:          d.MovingAverage.WindowSize,
			DeviationMultiplier: d.MovingAverage.DeviationMultiplier,
		},
		Pattern: anomaly.PatternConfig{
			ZThreshold:      d.Pattern.ZThreshold,
			DailyMinPoints:  d.Pattern.DailyMinPoints,
			WeeklyMinPoints: d.Pattern.WeeklyMinPoints,
		},
		Frequency: anomaly.FrequencyConfig{
			WindowMinutes: d.Frequency.WindowMinutes,
			ZThreshold:    d.Frequency.ZThreshold,
			MinPoints:     d.Frequency.MinPoints,
		},
		Sensitivity:        c.Ensemble.Sensitivity,
		CorroborationBoost: c.Ensemble.CorroborationBoost,
		MaxConcurrency:     c.Ensemble.MaxConcurrency,
	}
}

// LoggingConfig maps the logging section onto logger options.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager. An empty path means
// defaults and environment only.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}
