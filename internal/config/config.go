package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultJWTSecret is the placeholder secret written to fresh config files.
const DefaultJWTSecret = "change-me-in-production"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	// RedisURL enables the shared presence cache. Empty keeps presence in memory.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// MessageRateLimit caps sends per user per minute. Zero disables the limit.
	MessageRateLimit int  `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	PushEnabled      bool `mapstructure:"push_enabled" yaml:"push_enabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "wirechat.db",
		JWTSecret:         DefaultJWTSecret,
		JWTIssuer:         "wirechat",
		JWTAudience:       "wirechat-clients",
		JWTTTL:            24 * time.Hour,
		MessageRateLimit:  60,
		PushEnabled:       true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans cannot be told apart from their zero value and are left alone.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisURL != "" {
		c.RedisURL = other.RedisURL
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.MessageRateLimit != 0 {
		c.MessageRateLimit = other.MessageRateLimit
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("jwt_ttl must be positive, got %s", c.JWTTTL))
	}
	if c.MessageRateLimit < 0 {
		errs = append(errs, fmt.Errorf("message_rate_limit must not be negative, got %d", c.MessageRateLimit))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
