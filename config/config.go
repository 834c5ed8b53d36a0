package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scoreboard/adapters/redis"
	"scoreboard/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"SCOREBOARD_ENV"`
	Profile     string      `json:"profile" env:"SCOREBOARD_PROFILE"`

	Server       ServerConfig       `json:"server"`
	Cache        CacheConfig        `json:"cache"`
	Database     DatabaseConfig     `json:"database"`
	Realtime     RealtimeConfig     `json:"realtime"`
	Logging      LoggingConfig      `json:"logging"`
	Metrics      MetricsConfig      `json:"metrics"`
	Security     SecurityConfig     `json:"security"`
	Integrations IntegrationsConfig `json:"integrations"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"SCOREBOARD_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"SCOREBOARD_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"SCOREBOARD_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"SCOREBOARD_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"SCOREBOARD_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"SCOREBOARD_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"SCOREBOARD_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SCOREBOARD_SERVER_SHUTDOWN_TIMEOUT"`
}

// CacheConfig selects and configures the score cache adapter
type CacheConfig struct {
	Adapter string      `json:"adapter" env:"SCOREBOARD_CACHE_ADAPTER"`
	Redis   RedisConfig `json:"redis,omitempty"`
	File    FileConfig  `json:"file,omitempty"`
}

// RedisConfig holds the redis cache settings
type RedisConfig struct {
	URL            string        `json:"url,omitempty" env:"SCOREBOARD_REDIS_URL"`
	Addr           string        `json:"addr" env:"SCOREBOARD_REDIS_ADDR"`
	Password       string        `json:"password,omitempty" env:"SCOREBOARD_REDIS_PASSWORD"`
	DB             int           `json:"db" env:"SCOREBOARD_REDIS_DB"`
	PoolSize       int           `json:"pool_size" env:"SCOREBOARD_REDIS_POOL_SIZE"`
	TTL            time.Duration `json:"ttl" env:"SCOREBOARD_REDIS_TTL"`
	CircuitBreaker bool          `json:"circuit_breaker" env:"SCOREBOARD_REDIS_CIRCUIT_BREAKER"`
}

// FileConfig holds JSON file cache configuration
type FileConfig struct {
	Path string `json:"path" env:"SCOREBOARD_CACHE_FILE_PATH"`
}

// DatabaseConfig holds the relational store settings. An empty DSN keeps
// accounts and leaderboards in memory.
type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"SCOREBOARD_DATABASE_DRIVER"`
	DSN             string        `json:"dsn,omitempty" env:"SCOREBOARD_DATABASE_DSN,DATABASE_URL"`
	MaxOpenConns    int           `json:"max_open_conns" env:"SCOREBOARD_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"SCOREBOARD_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"SCOREBOARD_DATABASE_CONN_MAX_LIFETIME"`
}

// RealtimeConfig tunes websocket sessions and the event bus
type RealtimeConfig struct {
	QueueSize      int           `json:"queue_size" env:"SCOREBOARD_REALTIME_QUEUE_SIZE"`
	WriteTimeout   time.Duration `json:"write_timeout" env:"SCOREBOARD_REALTIME_WRITE_TIMEOUT"`
	PingInterval   time.Duration `json:"ping_interval" env:"SCOREBOARD_REALTIME_PING_INTERVAL"`
	PongWait       time.Duration `json:"pong_wait" env:"SCOREBOARD_REALTIME_PONG_WAIT"`
	MaxMessageSize int64         `json:"max_message_size" env:"SCOREBOARD_REALTIME_MAX_MESSAGE_SIZE"`
	AsyncEvents    bool          `json:"async_events" env:"SCOREBOARD_REALTIME_ASYNC_EVENTS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"SCOREBOARD_LOG_LEVEL"`
	Format     string            `json:"format" env:"SCOREBOARD_LOG_FORMAT"`
	Output     string            `json:"output" env:"SCOREBOARD_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"SCOREBOARD_LOG_ATTRIBUTES"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"SCOREBOARD_METRICS_ENABLED"`
	Path    string `json:"path" env:"SCOREBOARD_METRICS_PATH"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"SCOREBOARD_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"SCOREBOARD_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"SCOREBOARD_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" env:"SCOREBOARD_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"SCOREBOARD_SECURITY_RATE_LIMIT_CLEANUP"`
}

// IntegrationsConfig lists outbound event sinks
type IntegrationsConfig struct {
	WebhookURLs    []string      `json:"webhook_urls,omitempty" env:"SCOREBOARD_WEBHOOK_URLS"`
	WebhookTimeout time.Duration `json:"webhook_timeout" env:"SCOREBOARD_WEBHOOK_TIMEOUT"`
}

// RedisAdapterConfig converts the section into the adapter's config.
func (r RedisConfig) RedisAdapterConfig() redis.Config {
	cfg := redis.DefaultConfig()
	cfg.URL = r.URL
	if r.Addr != "" {
		cfg.Addr = r.Addr
	}
	cfg.Password = r.Password
	cfg.DB = r.DB
	if r.PoolSize > 0 {
		cfg.PoolSize = r.PoolSize
	}
	cfg.TTL = r.TTL
	cfg.CircuitBreaker = r.CircuitBreaker
	return cfg
}

// SQLConfig converts the section into the sqlx adapter's config.
func (d DatabaseConfig) SQLConfig() sqlx.Config {
	cfg := sqlx.DefaultConfig(sqlx.Driver(d.Driver))
	cfg.DSN = d.DSN
	if d.MaxOpenConns > 0 {
		cfg.MaxOpenConns = d.MaxOpenConns
	}
	if d.MaxIdleConns > 0 {
		cfg.MaxIdleConns = d.MaxIdleConns
	}
	if d.ConnMaxLifetime > 0 {
		cfg.ConnMaxLifetime = d.ConnMaxLifetime
	}
	return cfg
}

// LoadDotEnv reads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from .env and environment variables and validates it
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           "[::1]:5000",
			PathPrefix:        "/api/v1",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			Adapter: "memory",
			Redis: RedisConfig{
				Addr:           "[::1]:6379",
				PoolSize:       10,
				CircuitBreaker: true,
			},
			File: FileConfig{
				Path: "./data/scoreboard.json",
			},
		},
		Database: DatabaseConfig{
			Driver:          string(sqlx.DriverPostgres),
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Realtime: RealtimeConfig{
			QueueSize:      32,
			WriteTimeout:   5 * time.Second,
			PingInterval:   30 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 64 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
		Integrations: IntegrationsConfig{
			WebhookTimeout: 5 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("cache config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Realtime.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("realtime config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("metrics config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Integrations.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("integrations config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Database.DSN != "" {
		cfg.Database.DSN = "[REDACTED]"
	}
	if cfg.Cache.Redis.Password != "" {
		cfg.Cache.Redis.Password = "[REDACTED]"
	}
	if cfg.Cache.Redis.URL != "" {
		cfg.Cache.Redis.URL = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
