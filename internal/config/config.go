package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName             string        `mapstructure:"app_name"`
	Env                 string        `mapstructure:"app_env"`
	LogLevel            string        `mapstructure:"log_level"`
	TargetsFile         string        `mapstructure:"targets_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`
	SyncWorkers         int           `mapstructure:"sync_workers"`
	HTTPTimeoutSeconds  int64         `mapstructure:"http_timeout"`
	HTTPTimeout         time.Duration `mapstructure:"-"`

	CatalogAPIKey  string  `mapstructure:"catalog_api_key"`
	CatalogBaseURL string  `mapstructure:"catalog_base_url"`
	CatalogRPS     float64 `mapstructure:"catalog_rps"`
	ServiceRPS     float64 `mapstructure:"service_rps"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "trendarr")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("sync_interval", int64((12*time.Hour)/time.Second))
	v.SetDefault("sync_workers", DefaultWorkers())
	v.SetDefault("http_timeout", 30)
	v.SetDefault("catalog_api_key", "")
	v.SetDefault("catalog_base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog_rps", 20.0)
	v.SetDefault("service_rps", 10.0)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/trendarr.db")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("invalid sync_interval (must be positive seconds)")
	}
	c.SyncInterval = time.Duration(c.SyncIntervalSeconds) * time.Second

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	if c.SyncWorkers <= 0 {
		return fmt.Errorf("invalid sync_workers (must be at least 1)")
	}
	if c.CatalogRPS < 0 || c.ServiceRPS < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	c.CatalogAPIKey = strings.TrimSpace(c.CatalogAPIKey)
	c.CatalogBaseURL = strings.TrimRight(strings.TrimSpace(c.CatalogBaseURL), "/")
	return nil
}

// DefaultWorkers tracks available cores, bounded to a modest range so downstream
// services are not flooded on large machines.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n < 4 {
		return 4
	}
	if n > 8 {
		return 8
	}
	return n
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.CatalogAPIKey != "" {
		out.CatalogAPIKey = "***"
	}
	return out
}
