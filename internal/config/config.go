package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Web      WebConfig      `mapstructure:"web"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	HTTPPort    int    `mapstructure:"http_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	BindAddress string `mapstructure:"bind_address"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Bolt  BoltConfig  `mapstructure:"bolt"`
	Redis RedisConfig `mapstructure:"redis"`
}

// BoltConfig defines BoltDB backend settings
type BoltConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig defines Redis backend settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackingConfig defines ledger and analytics defaults
type TrackingConfig struct {
	// Trailing windows, in seconds, for the recent-ratio rows.
	Timespans []int64 `mapstructure:"timespans"`
	// Trailing window, in seconds, for the history bar.
	BarTimespan int64 `mapstructure:"bar_timespan"`
	// Width of the history bar in display units.
	BarWidth int `mapstructure:"bar_width"`
	// Description given to eras created implicitly on first activity.
	DefaultEraDescription string `mapstructure:"default_era_description"`
	// Modes whose ratio is reported, numerator over denominator.
	RatioOver  string `mapstructure:"ratio_over"`
	RatioUnder string `mapstructure:"ratio_under"`
}

// WebConfig defines web interface settings
type WebConfig struct {
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecret string `mapstructure:"cookie_secret"` // empty = random per process
	SessionTTL   string `mapstructure:"session_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("WORKTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.bind_address", "0.0.0.0")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.bolt.path", "/var/lib/worktime/worktime.bolt")
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Tracking defaults: 12h and 2h ratio windows, 12h history bar
	v.SetDefault("tracking.timespans", []int64{12 * 60 * 60, 2 * 60 * 60})
	v.SetDefault("tracking.bar_timespan", int64(12*60*60))
	v.SetDefault("tracking.bar_width", 100)
	v.SetDefault("tracking.default_era_description", "")
	v.SetDefault("tracking.ratio_over", "p")
	v.SetDefault("tracking.ratio_under", "w")

	// Web defaults
	v.SetDefault("web.cookie_name", "worktime_visitor")
	v.SetDefault("web.session_ttl", "8760h")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	switch cfg.Storage.Type {
	case "bolt":
		if cfg.Storage.Bolt.Path == "" {
			return fmt.Errorf("storage.bolt.path is required")
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s (must be 'bolt' or 'redis')", cfg.Storage.Type)
	}

	if len(cfg.Tracking.Timespans) == 0 {
		return fmt.Errorf("at least one tracking timespan is required")
	}
	for _, ts := range cfg.Tracking.Timespans {
		if ts <= 0 {
			return fmt.Errorf("invalid tracking timespan: %d", ts)
		}
	}
	if cfg.Tracking.BarTimespan <= 0 {
		return fmt.Errorf("invalid bar timespan: %d", cfg.Tracking.BarTimespan)
	}
	if cfg.Tracking.BarWidth <= 0 {
		return fmt.Errorf("invalid bar width: %d", cfg.Tracking.BarWidth)
	}

	if _, err := time.ParseDuration(cfg.Web.SessionTTL); err != nil {
		return fmt.Errorf("invalid web.session_ttl: %w", err)
	}

	return nil
}
