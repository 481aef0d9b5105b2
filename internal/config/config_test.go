package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "userstore_test")
	t.Setenv("MONGODB_TIMEOUT", "3")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.MongoDB.Database != "userstore_test" {
		t.Fatalf("unexpected database: %q", cfg.MongoDB.Database)
	}
	if cfg.MongoDB.Collection != "users" {
		t.Fatalf("expected default collection users, got %q", cfg.MongoDB.Collection)
	}
	if cfg.MongoDB.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.MongoDB.Timeout)
	}
	if !cfg.RateLimit.Enabled {
		t.Fatalf("expected rate limit enabled")
	}
	if !cfg.Auth.Enabled() {
		t.Fatalf("expected auth enabled with JWT secret")
	}
}

func TestLoadConfig_MissingMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")

	_, err := LoadConfig()
	if !errors.Is(err, ErrMissingMongoURI) {
		t.Fatalf("expected ErrMissingMongoURI, got %v", err)
	}
}
