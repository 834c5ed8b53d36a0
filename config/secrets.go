package config

import (
	"context"
	"fmt"
	"os"
)

// SecretStore resolves credentials that should not live in config files.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("secret %s not set", key)
	}
	return v, nil
}

func (s EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := s.Get(ctx, key); err == nil {
		return v
	}
	return def
}

// ApplySecrets fills redis credentials left empty in cfg from the store.
func ApplySecrets(ctx context.Context, cfg *Config, store SecretStore) {
	if cfg.Cache.Redis.URL == "" {
		cfg.Cache.Redis.URL = store.GetWithDefault(ctx, "REDIS_URL", "")
	}
	if cfg.Cache.Redis.Password == "" {
		cfg.Cache.Redis.Password = store.GetWithDefault(ctx, "REDIS_PASSWORD", "")
	}
}
