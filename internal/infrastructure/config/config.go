package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all connector configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Bubblehouse BubblehouseConfig
	Queue       QueueConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BubblehouseConfig holds the loyalty platform credentials.
// Stores overrides the default credentials for individual store ids.
type BubblehouseConfig struct {
	BaseURL        string
	APIVersion     string
	Shop           string
	KeyID          string
	SharedSecret   string
	TimeoutSeconds int
	Stores         map[int64]BubblehouseStoreConfig
}

// BubblehouseStoreConfig holds credentials for a single store
type BubblehouseStoreConfig struct {
	Shop         string `mapstructure:"shop"`
	KeyID        string `mapstructure:"key_id"`
	SharedSecret string `mapstructure:"shared_secret"`
}

// QueueConfig holds the order export queue settings
type QueueConfig struct {
	Key        string
	PopTimeout time.Duration
	LockTTL    time.Duration // how long a worker holds the per-order lock
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool // Log full SQL statements (dev only)
}

// Load loads configuration from config.toml and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BHC_ prefix (e.g., BHC_BUBBLEHOUSE_SHARED_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the working directory and /etc/bubblehouse-connector.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bubblehouse-connector")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BHC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	stores, err := loadStores(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Bubblehouse: BubblehouseConfig{
			BaseURL:        v.GetString("bubblehouse.base_url"),
			APIVersion:     v.GetString("bubblehouse.api_version"),
			Shop:           v.GetString("bubblehouse.shop"),
			KeyID:          v.GetString("bubblehouse.key_id"),
			SharedSecret:   v.GetString("bubblehouse.shared_secret"),
			TimeoutSeconds: v.GetInt("bubblehouse.timeout_seconds"),
			Stores:         stores,
		},
		Queue: QueueConfig{
			Key:        v.GetString("queue.key"),
			PopTimeout: v.GetDuration("queue.pop_timeout"),
			LockTTL:    v.GetDuration("queue.lock_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadStores reads the [bubblehouse.stores.<id>] tables
func loadStores(v *viper.Viper) (map[int64]BubblehouseStoreConfig, error) {
	raw := map[string]BubblehouseStoreConfig{}
	if err := v.UnmarshalKey("bubblehouse.stores", &raw); err != nil {
		return nil, fmt.Errorf("invalid bubblehouse.stores: %w", err)
	}

	stores := make(map[int64]BubblehouseStoreConfig, len(raw))
	for key, store := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bubblehouse.stores key %q: store ids must be integers", key)
		}
		stores[id] = store
	}
	return stores, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bubblehouse-connector"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Bubblehouse.BaseURL == "" {
		cfg.Bubblehouse.BaseURL = "https://app.bubblehouse.com"
	}
	if cfg.Bubblehouse.APIVersion == "" {
		cfg.Bubblehouse.APIVersion = "v2023061"
	}
	if cfg.Bubblehouse.TimeoutSeconds == 0 {
		cfg.Bubblehouse.TimeoutSeconds = 30
	}
	if cfg.Queue.Key == "" {
		cfg.Queue.Key = "bubblehouse:order_export"
	}
	if cfg.Queue.PopTimeout == 0 {
		cfg.Queue.PopTimeout = 5 * time.Second
	}
	if cfg.Queue.LockTTL == 0 {
		cfg.Queue.LockTTL = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "bubblehouse-connector"
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := url.ParseRequestURI(c.Bubblehouse.BaseURL); err != nil {
		return fmt.Errorf("bubblehouse.base_url is invalid: %w", err)
	}
	if c.Bubblehouse.TimeoutSeconds < 0 {
		return fmt.Errorf("bubblehouse.timeout_seconds cannot be negative")
	}
	for id, store := range c.Bubblehouse.Stores {
		if store.Shop == "" || store.KeyID == "" || store.SharedSecret == "" {
			return fmt.Errorf("bubblehouse.stores.%d requires shop, key_id and shared_secret", id)
		}
	}

	if c.Queue.PopTimeout < 0 {
		return fmt.Errorf("queue.pop_timeout cannot be negative")
	}
	if c.Queue.LockTTL < 0 {
		return fmt.Errorf("queue.lock_ttl cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Bubblehouse.Shop != "" && c.Bubblehouse.SharedSecret == "" {
			return fmt.Errorf("bubblehouse.shared_secret is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
