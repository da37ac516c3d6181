package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test detection defaults
	assert.Equal(t, 3.0, cfg.Detection.Statistical.ZThreshold)
	assert.Equal(t, 1.5, cfg.Detection.Statistical.IQRMultiplier)
	assert.Equal(t, 10, cfg.Detection.Statistical.MinPoints)
	assert.Equal(t, 10, cfg.Detection.MovingAverage.WindowSize)
	assert.Equal(t, 2.0, cfg.Detection.MovingAverage.DeviationMultiplier)
	assert.Equal(t, 48, cfg.Detection.Pattern.DailyMinPoints)
	assert.Equal(t, 168, cfg.Detection.Pattern.WeeklyMinPoints)
	assert.Equal(t, 60, cfg.Detection.Frequency.WindowMinutes)
	assert.Equal(t, 2.5, cfg.Detection.Frequency.ZThreshold)

	// Test ensemble defaults
	assert.Equal(t, 1.0, cfg.Ensemble.Sensitivity)
	assert.Equal(t, 1.2, cfg.Ensemble.CorroborationBoost)
	assert.Zero(t, cfg.Ensemble.MaxConcurrency)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File)

	assert.Empty(t, cfg.Validate())
}

func TestAnomalyConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.MovingAverage.WindowSize = 24
	cfg.Ensemble.Sensitivity = 0.5
	cfg.Ensemble.MaxConcurrency = 4

	det := cfg.AnomalyConfig()
	assert.Equal(t, 24, det.MovingAverage.WindowSize)
	assert.Equal(t, 0.5, det.Sensitivity)
	assert.Equal(t, 4, det.MaxConcurrency)
	assert.Equal(t, cfg.Detection.Pattern.ZThreshold, det.Pattern.ZThreshold)
	assert.Equal(t, cfg.Detection.Frequency.MinPoints, det.Frequency.MinPoints)

	lc := cfg.LoggingConfig()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, 100, lc.MaxSizeMB)
	assert.True(t, lc.Compress)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "non-positive z threshold",
			modifyFn: func(cfg *Config) {
				cfg.Detection.Statistical.ZThreshold = 0
			},
			wantError: true,
			errorMsg:  "detection.statistical.z_threshold",
		},
		{
			name: "window too small",
			modifyFn: func(cfg *Config) {
				cfg.Detection.MovingAverage.WindowSize = 1
			},
			wantError: true,
			errorMsg:  "must be at least 2",
		},
		{
			name: "weekly minimum below daily minimum",
			modifyFn: func(cfg *Config) {
				cfg.Detection.Pattern.WeeklyMinPoints = 24
			},
			wantError: true,
			errorMsg:  "must not be below daily_min_points",
		},
		{
			name: "zero frequency window",
			modifyFn: func(cfg *Config) {
				cfg.Detection.Frequency.WindowMinutes = 0
			},
			wantError: true,
			errorMsg:  "detection.frequency.window_minutes",
		},
		{
			name: "sensitivity zero",
			modifyFn: func(cfg *Config) {
				cfg.Ensemble.Sensitivity = 0
			},
			wantError: true,
			errorMsg:  "sensitivity must be in (0, 2]",
		},
		{
			name: "sensitivity above range",
			modifyFn: func(cfg *Config) {
				cfg.Ensemble.Sensitivity = 2.5
			},
			wantError: true,
			errorMsg:  "sensitivity must be in (0, 2]",
		},
		{
			name: "sensitivity at upper bound",
			modifyFn: func(cfg *Config) {
				cfg.Ensemble.Sensitivity = 2.0
			},
			wantError: false,
		},
		{
			name: "boost below one",
			modifyFn: func(cfg *Config) {
				cfg.Ensemble.CorroborationBoost = 0.9
			},
			wantError: true,
			errorMsg:  "corroboration_boost must be at least 1",
		},
		{
			name: "negative concurrency",
			modifyFn: func(cfg *Config) {
				cfg.Ensemble.MaxConcurrency = -1
			},
			wantError: true,
			errorMsg:  "ensemble.max_concurrency",
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "verbose"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Format = "xml"
			},
			wantError: true,
			errorMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()
			if !tt.wantError {
				assert.Empty(t, errs, "expected no validation errors")
				return
			}

			require.NotEmpty(t, errs, "expected validation errors")
			found := false
			for _, err := range errs {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				if containsText(err.Error(), tt.errorMsg) {
					found = true
					break
				}
			}
			assert.True(t, found, "expected error containing %q, got %v", tt.errorMsg, errs)
		})
	}
}

func TestConfigManagerLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
detection:
  statistical:
    z_threshold: 2.5
  moving_average:
    window_size: 24
  frequency:
    window_minutes: 15

ensemble:
  sensitivity: 1.5
  max_concurrency: 2

logging:
  level: DEBUG
  format: console
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))

	cfg := mgr.Get(ctx)
	assert.Equal(t, 2.5, cfg.Detection.Statistical.ZThreshold)
	assert.Equal(t, 24, cfg.Detection.MovingAverage.WindowSize)
	assert.Equal(t, 15, cfg.Detection.Frequency.WindowMinutes)
	assert.Equal(t, 1.5, cfg.Ensemble.Sensitivity)
	assert.Equal(t, 2, cfg.Ensemble.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, 1.5, cfg.Detection.Statistical.IQRMultiplier)
	assert.Equal(t, 1.2, cfg.Ensemble.CorroborationBoost)

	assert.NoError(t, mgr.Validate(ctx))
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	t.Setenv("ANOMALY_ENSEMBLE_SENSITIVITY", "0.5")
	t.Setenv("ANOMALY_DETECTION_MOVING_AVERAGE_WINDOW_SIZE", "30")
	t.Setenv("ANOMALY_LOGGING_LEVEL", "warn")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
detection:
  moving_average:
    window_size: 12

ensemble:
  sensitivity: 1.0
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))

	cfg := mgr.Get(ctx)

	// Environment variables should override config file
	assert.Equal(t, 0.5, cfg.Ensemble.Sensitivity)
	assert.Equal(t, 30, cfg.Detection.MovingAverage.WindowSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConfigManagerMissingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent-config.yaml")

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	// Should not error - should use defaults
	require.NoError(t, mgr.Load(ctx))

	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigManagerNoFile(t *testing.T) {
	mgr, err := NewConfigManager("")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	assert.Equal(t, DefaultConfig(), mgr.Get(ctx))

	// Without a file there is nothing to watch.
	ch := mgr.Watch(ctx)
	require.NotNil(t, ch)
	assert.Empty(t, ch)
}

func TestConfigManagerMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ensemble: [unclosed"), 0644))

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	err = mgr.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfigManagerReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ensemble:\n  sensitivity: 1.0\n"), 0644))

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	assert.Equal(t, 1.0, mgr.Get(ctx).Ensemble.Sensitivity)

	require.NoError(t, os.WriteFile(configPath, []byte("ensemble:\n  sensitivity: 0.25\n"), 0644))
	require.NoError(t, mgr.Reload(ctx))
	assert.Equal(t, 0.25, mgr.Get(ctx).Ensemble.Sensitivity)
}

func TestConfigManagerValidation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
detection:
  moving_average:
    window_size: 1

ensemble:
  sensitivity: 3

logging:
  format: xml
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))

	err = mgr.Validate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "detection.moving_average.window_size")
	assert.Contains(t, err.Error(), "ensemble.sensitivity")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestConfigManagerWatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig := func(sensitivity float64) {
		t.Helper()
		content := fmt.Sprintf("ensemble:\n  sensitivity: %g\n  corroboration_boost: 1.5\n", sensitivity)
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	}
	writeConfig(1.0)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, mgr.Load(ctx))
	updates := mgr.Watch(ctx)

	// Invalid edit: nothing is published and the previous config stays active.
	writeConfig(5.0)
	assert.Never(t, func() bool { return len(updates) > 0 }, 500*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, 1.0, mgr.Get(ctx).Ensemble.Sensitivity)

	// Valid edit: the first revision received is the one written, never the
	// defaults-only read of the truncated file.
	writeConfig(0.5)
	select {
	case got := <-updates:
		assert.Equal(t, 0.5, got.Ensemble.Sensitivity)
		assert.Equal(t, 1.5, got.Ensemble.CorroborationBoost)
	case <-time.After(5 * time.Second):
		t.Fatal("no configuration revision delivered")
	}
	assert.Equal(t, 0.5, mgr.Get(ctx).Ensemble.Sensitivity)
}

func TestConfigManagerPublishKeepsLatest(t *testing.T) {
	m := &viperConfigManager{watchChan: make(chan Config, 1)}

	first := *DefaultConfig()
	first.Ensemble.Sensitivity = 0.3
	second := *DefaultConfig()
	second.Ensemble.Sensitivity = 0.6

	m.publish(first)
	m.publish(second)

	require.Len(t, m.watchChan, 1)
	assert.Equal(t, 0.6, (<-m.watchChan).Ensemble.Sensitivity)
}

func TestConfigCheck(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Check())

	cfg.Ensemble.Sensitivity = 0
	cfg.Logging.Format = "xml"
	err := cfg.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "ensemble.sensitivity")
	assert.Contains(t, err.Error(), "logging.format")
}

// Helper function
func containsText(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 || findSubstring(s, substr))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
