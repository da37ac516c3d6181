package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ANOMALY_ENSEMBLE_SENSITIVITY for ensemble.sensitivity.
const EnvPrefix = "ANOMALY"

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	viper      *viper.Viper
	watchChan  chan Config

	mu     sync.RWMutex
	config *Config

	publishMu sync.Mutex
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	}
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if err := m.readConfigFile(); err != nil {
		return err
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// readConfigFile reads the YAML file if one was configured. A missing file
// is not an error: defaults and environment variables still apply.
func (m *viperConfigManager) readConfigFile() error {
	if m.configPath == "" {
		return nil
	}
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("error reading config file: %w", err)
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	return m.Get(ctx).Check()
}

// Watch watches the config file and publishes each valid revision. The
// channel holds only the latest revision: an unread one is replaced. Invalid
// revisions are dropped and the previous configuration stays active.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	if m.viper == nil || m.configPath == "" {
		return m.watchChan
	}

	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		// Editors and os.WriteFile truncate before writing; the empty
		// intermediate file would otherwise read as pure defaults.
		if !m.hasFileSettings() {
			return
		}
		cfg := m.decodeConfig()
		if len(cfg.Validate()) > 0 {
			return
		}
		m.setConfig(cfg)
		m.publish(*cfg)
	})
	m.viper.WatchConfig()

	return m.watchChan
}

// hasFileSettings reports whether the last read of the file set any section.
func (m *viperConfigManager) hasFileSettings() bool {
	for _, section := range []string{"detection", "ensemble", "logging"} {
		if m.viper.InConfig(section) {
			return true
		}
	}
	return false
}

// publish replaces any unread revision with cfg.
func (m *viperConfigManager) publish(cfg Config) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	select {
	case <-m.watchChan:
	default:
	}
	m.watchChan <- cfg
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if m.viper == nil {
		return m.Load(ctx)
	}
	if err := m.readConfigFile(); err != nil {
		return err
	}
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// setDefaults sets default values in viper. Every key must be registered
// here for AutomaticEnv to resolve it.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Detection defaults
	m.viper.SetDefault("detection.statistical.z_threshold", defaults.Detection.Statistical.ZThreshold)
	m.viper.SetDefault("detection.statistical.iqr_multiplier", defaults.Detection.Statistical.IQRMultiplier)
	m.viper.SetDefault("detection.statistical.min_points", defaults.Detection.Statistical.MinPoints)

	m.viper.SetDefault("detection.moving_average.window_size", defaults.Detection.MovingAverage.WindowSize)
	m.viper.SetDefault("detection.moving_average.deviation_multiplier", defaults.Detection.MovingAverage.DeviationMultiplier)

	m.viper.SetDefault("detection.pattern.z_threshold", defaults.Detection.Pattern.ZThreshold)
	m.viper.SetDefault("detection.pattern.daily_min_points", defaults.Detection.Pattern.DailyMinPoints)
	m.viper.SetDefault("detection.pattern.weekly_min_points", defaults.Detection.Pattern.WeeklyMinPoints)

	m.viper.SetDefault("detection.frequency.window_minutes", defaults.Detection.Frequency.WindowMinutes)
	m.viper.SetDefault("detection.frequency.z_threshold", defaults.Detection.Frequency.ZThreshold)
	m.viper.SetDefault("detection.frequency.min_points", defaults.Detection.Frequency.MinPoints)

	// Ensemble defaults
	m.viper.SetDefault("ensemble.sensitivity", defaults.Ensemble.Sensitivity)
	m.viper.SetDefault("ensemble.corroboration_boost", defaults.Ensemble.CorroborationBoost)
	m.viper.SetDefault("ensemble.max_concurrency", defaults.Ensemble.MaxConcurrency)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// unmarshalConfig builds a fresh Config from viper and swaps it in.
func (m *viperConfigManager) unmarshalConfig() error {
	m.setConfig(m.decodeConfig())
	return nil
}

func (m *viperConfigManager) decodeConfig() *Config {
	cfg := &Config{}
	v := m.viper

	cfg.Detection.Statistical.ZThreshold = v.GetFloat64("detection.statistical.z_threshold")
	cfg.Detection.Statistical.IQRMultiplier = v.GetFloat64("detection.statistical.iqr_multiplier")
	cfg.Detection.Statistical.MinPoints = v.GetInt("detection.statistical.min_points")

	cfg.Detection.MovingAverage.WindowSize = v.GetInt("detection.moving_average.window_size")
	cfg.Detection.MovingAverage.DeviationMultiplier = v.GetFloat64("detection.moving_average.deviation_multiplier")

	cfg.Detection.Pattern.ZThreshold = v.GetFloat64("detection.pattern.z_threshold")
	cfg.Detection.Pattern.DailyMinPoints = v.GetInt("detection.pattern.daily_min_points")
	cfg.Detection.Pattern.WeeklyMinPoints = v.GetInt("detection.pattern.weekly_min_points")

	cfg.Detection.Frequency.WindowMinutes = v.GetInt("detection.frequency.window_minutes")
	cfg.Detection.Frequency.ZThreshold = v.GetFloat64("detection.frequency.z_threshold")
	cfg.Detection.Frequency.MinPoints = v.GetInt("detection.frequency.min_points")

	cfg.Ensemble.Sensitivity = v.GetFloat64("ensemble.sensitivity")
	cfg.Ensemble.CorroborationBoost = v.GetFloat64("ensemble.corroboration_boost")
	cfg.Ensemble.MaxConcurrency = v.GetInt("ensemble.max_concurrency")

	cfg.Logging.Level = strings.ToLower(v.GetString("logging.level"))
	cfg.Logging.Format = strings.ToLower(v.GetString("logging.format"))
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = v.GetInt("logging.max_age_days")
	cfg.Logging.Compress = v.GetBool("logging.compress")

	return cfg
}

func (m *viperConfigManager) setConfig(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}
