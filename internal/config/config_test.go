package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.MessageRateLimit != 60 || !cfg.PushEnabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":9000\"\nlog_level: debug\nmessage_rate_limit: 5\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIRECHAT_LOG_LEVEL", "warn")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("file value lost: %q", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("env must override file, got %q", cfg.LogLevel)
	}
	if cfg.MessageRateLimit != 5 {
		t.Fatalf("unexpected rate limit %d", cfg.MessageRateLimit)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("default lost: %v", cfg.ShutdownTimeout)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", RedisURL: "redis://localhost:6379/0"})

	if cfg.Addr != ":1234" || cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("zero override must keep value, got %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "json logs", mutate: func(c *Config) { c.LogFormat = "JSON" }},
		{name: "no addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
		{name: "no secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.JWTTTL = 0 }, wantErr: true},
		{name: "negative rate", mutate: func(c *Config) { c.MessageRateLimit = -1 }, wantErr: true},
		{name: "xml logs", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("message_rate_limit: -3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected validation error")
	}
}
