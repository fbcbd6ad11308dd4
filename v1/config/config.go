package config

import (
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// RESULTCACHE_CACHE_MAX_SIZE.
const EnvPrefix = "RESULTCACHE"

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Report    ReportConfig    `mapstructure:"report"`
	Generator GeneratorConfig `mapstructure:"generator"`
}

// CacheConfig sizes the result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`  // Cache generation results
	MaxSize int           `mapstructure:"max_size"` // Maximum number of entries
	TTL     time.Duration `mapstructure:"ttl"`      // Freshness window since write
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ReportConfig controls periodic stats reporting.
type ReportConfig struct {
	Interval time.Duration `mapstructure:"interval"` // Zero disables reporting
}

// GeneratorConfig tunes the stand-in generator used by the demo binary.
type GeneratorConfig struct {
	Model   string        `mapstructure:"model"`
	Latency time.Duration `mapstructure:"latency"`
}

// Load reads configuration from an optional YAML file, environment variables
// and defaults, in decreasing order of precedence: env, file, defaults.
// With an empty path, a "resultcache.yaml" is looked up in the working
// directory and /etc/resultcache; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/resultcache")
		v.SetConfigName("resultcache")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stdErrors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("tracing.enabled", false)

	v.SetDefault("report.interval", 30*time.Second)

	v.SetDefault("generator.model", "echo")
	v.SetDefault("generator.latency", 200*time.Millisecond)
}

// Validate rejects values the result cache cannot run with. Cache bounds
// must be positive; omit them to get the defaults.
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("config: cache.max_size: %w: %d", rcerrors.ErrInvalidMaxSize, c.Cache.MaxSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl: %w: %s", rcerrors.ErrInvalidTTL, c.Cache.TTL)
	}
	if c.Report.Interval < 0 {
		return fmt.Errorf("config: report.interval must not be negative: %s", c.Report.Interval)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the slog logger described by l, writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
