package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string        `mapstructure:"addr"`
	LogDir         string        `mapstructure:"log_dir"`
	DatabaseURL    string        `mapstructure:"database_url"` // empty means in-memory store
	CronSecret     string        `mapstructure:"cron_secret"`
	APIKeys        []string      `mapstructure:"api_keys"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Concurrency    int           `mapstructure:"concurrency"`
	Retention      time.Duration `mapstructure:"retention"`
	CheckInterval  time.Duration `mapstructure:"check_interval"` // 0 disables the in-process runner
	MaxTimeout     time.Duration `mapstructure:"max_timeout"`
}

// Load reads config.yaml (optional) and environment variables prefixed
// with VIGIL_, e.g. VIGIL_DATABASE_URL, VIGIL_CRON_SECRET.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	v.SetEnvPrefix("vigil")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("database_url", "")
	v.SetDefault("cron_secret", "")
	v.SetDefault("api_keys", []string{})
	v.SetDefault("allowed_origins", []string{"*"})
	// Fixed global ceiling on in-flight probes per batch.
	v.SetDefault("concurrency", 5)
	// One global horizon for raw result rows.
	v.SetDefault("retention", "168h")
	v.SetDefault("check_interval", "0")
	v.SetDefault("max_timeout", "30s")
}

func validate(cfg *Config) error {
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if cfg.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %v", cfg.Retention)
	}
	if cfg.MaxTimeout <= 0 {
		return fmt.Errorf("max_timeout must be positive, got %v", cfg.MaxTimeout)
	}
	return nil
}

// ValidateMonitorTimeout bounds a per-monitor timeout by the configured
// plan ceiling.
func (c *Config) ValidateMonitorTimeout(d time.Duration) error {
	if d <= 0 {
		return errors.New("timeout must be positive")
	}
	if d > c.MaxTimeout {
		return fmt.Errorf("timeout %v exceeds maximum %v", d, c.MaxTimeout)
	}
	return nil
}

// ValidateExpectedStatus rejects values outside the HTTP status range.
// Non-standard but in-range codes are allowed; services use them.
func ValidateExpectedStatus(code int) error {
	if code < 100 || code > 599 {
		return fmt.Errorf("expected status %d is not a valid HTTP status code", code)
	}
	return nil
}
