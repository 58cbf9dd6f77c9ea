// Package config loads ephemctl settings from .ephemctl.yaml, EPHEM_* env
// vars and command-line flags through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
	"github.com/signalsfoundry/ephemeris-registry/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g. EPHEM_LOG_LEVEL.
const EnvPrefix = "EPHEM"

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// KernelsConfig holds the walk defaults for load and watch.
type KernelsConfig struct {
	Recursive   bool   `mapstructure:"recursive"`
	FollowLinks bool   `mapstructure:"follow_links"`
	Pattern     string `mapstructure:"pattern"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Config holds all runtime configuration for ephemctl.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Kernels KernelsConfig `mapstructure:"kernels"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("kernels.recursive", true)
	v.SetDefault("kernels.follow_links", false)
	v.SetDefault("kernels.pattern", "")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "ephem-registry")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// BindEnv makes v read EPHEM_* overrides, mapping nested keys such as
// log.level to EPHEM_LOG_LEVEL.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from v, applying built-in defaults for any value
// not set by config file, environment or flags. A nil v uses the global
// viper instance.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if r := cfg.Tracing.SampleRatio; r < 0 || r > 1 {
		return Config{}, fmt.Errorf("tracing.sample_ratio %v outside [0, 1]", r)
	}
	return cfg, nil
}

// Logging converts the log section for logging.New.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// TracingOptions converts the tracing section for observability.InitTracing.
func (c Config) TracingOptions() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
