package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// MaxSensitivity is the upper end of the supported sensitivity range.
const MaxSensitivity = 2.0

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	positive := func(field string, v float64) {
		if v <= 0 {
			errs = append(errs, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be greater than 0, got %g", v),
			})
		}
	}
	atLeast := func(field string, v, min int) {
		if v < min {
			errs = append(errs, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be at least %d, got %d", min, v),
			})
		}
	}

	// Validate detector configuration
	st := c.Detection.Statistical
	positive("detection.statistical.z_threshold", st.ZThreshold)
	positive("detection.statistical.iqr_multiplier", st.IQRMultiplier)
	atLeast("detection.statistical.min_points", st.MinPoints, 2)

	ma := c.Detection.MovingAverage
	atLeast("detection.moving_average.window_size", ma.WindowSize, 2)
	positive("detection.moving_average.deviation_multiplier", ma.DeviationMultiplier)

	pt := c.Detection.Pattern
	positive("detection.pattern.z_threshold", pt.ZThreshold)
	atLeast("detection.pattern.daily_min_points", pt.DailyMinPoints, 2)
	if pt.WeeklyMinPoints < pt.DailyMinPoints {
		errs = append(errs, &ValidationError{
			Field: "detection.pattern.weekly_min_points",
			Message: fmt.Sprintf("must not be below daily_min_points (%d), got %d",
				pt.DailyMinPoints, pt.WeeklyMinPoints),
		})
	}

	fq := c.Detection.Frequency
	atLeast("detection.frequency.window_minutes", fq.WindowMinutes, 1)
	positive("detection.frequency.z_threshold", fq.ZThreshold)
	atLeast("detection.frequency.min_points", fq.MinPoints, 2)

	// Validate ensemble configuration
	if c.Ensemble.Sensitivity <= 0 || c.Ensemble.Sensitivity > MaxSensitivity {
		errs = append(errs, &ValidationError{
			Field:   "ensemble.sensitivity",
			Message: fmt.Sprintf("sensitivity must be in (0, %g], got %g", MaxSensitivity, c.Ensemble.Sensitivity),
		})
	}
	if c.Ensemble.CorroborationBoost < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ensemble.corroboration_boost",
			Message: fmt.Sprintf("corroboration_boost must be at least 1, got %g", c.Ensemble.CorroborationBoost),
		})
	}
	atLeast("ensemble.max_concurrency", c.Ensemble.MaxConcurrency, 0)

	// Validate logging configuration
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, console", c.Logging.Format),
		})
	}
	atLeast("logging.max_size_mb", c.Logging.MaxSizeMB, 0)
	atLeast("logging.max_backups", c.Logging.MaxBackups, 0)
	atLeast("logging.max_age_days", c.Logging.MaxAgeDays, 0)

	return errs
}

// Check runs Validate and combines every failure into one error.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	var errMsgs []string
	for _, err := range errs {
		errMsgs = append(errMsgs, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
}
