package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the preset for a named environment with environment
// variables applied on top.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch Environment(name) {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Logging.Format = "text"
		cfg.Realtime.PingInterval = 0
		cfg.Metrics.Enabled = false
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Cache.Adapter = "redis"
		cfg.Realtime.AsyncEvents = true
		cfg.Security.EnableRateLimit = true
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Server.Address = ":5000"
		cfg.Server.CORSOrigin = ""
		cfg.Cache.Adapter = "redis"
		cfg.Cache.Redis.TTL = 24 * time.Hour
		cfg.Realtime.AsyncEvents = true
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
		cfg.Logging.Level = "info"
		cfg.Logging.Format = "json"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
