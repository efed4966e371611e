// Package config loads process configuration from the environment (and an
// optional .env file). Consumers depend on the narrow interfaces below
// rather than on *Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type MigrationConfig interface {
	GetMigrationsEnabled() bool
}

type JWTConfig interface {
	GetJWTAccessSecret() string
}

type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig covers the Redis-backed asynq queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// PhoneConfig is the region applied to numbers typed without a country code.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	DatabaseURL        string
	MigrationsEnabled  bool
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	DefaultPhoneRegion string
}

func (c *Config) GetDatabaseURL() string        { return c.DatabaseURL }
func (c *Config) GetMigrationsEnabled() bool    { return c.MigrationsEnabled }
func (c *Config) GetJWTAccessSecret() string    { return c.JWTAccessSecret }
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool         { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string      { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool       { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads the environment for the HTTP API. DATABASE_URL and
// JWT_ACCESS_SECRET are required.
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithoutAuth is Load for processes that never verify tokens, such as
// the queue worker and the backfill command. JWT_ACCESS_SECRET may be unset.
func LoadWithoutAuth() (*Config, error) {
	cfg := read()
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() *Config {
	_ = godotenv.Load()

	origins := list(str("CORS_ORIGINS", "http://localhost:4200"))
	return &Config{
		Env:                str("APP_ENV", "development"),
		LogLevel:           str("LOG_LEVEL", ""),
		HTTPAddr:           str("HTTP_ADDR", ":8080"),
		DatabaseURL:        str("DATABASE_URL", ""),
		MigrationsEnabled:  flag("MIGRATIONS_ENABLED", true),
		JWTAccessSecret:    str("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       flag("CORS_ALLOW_ALL", false) || slices.Contains(origins, "*"),
		CORSOrigins:        origins,
		CORSAllowCreds:     flag("CORS_ALLOW_CREDENTIALS", true),
		RedisURL:           str("REDIS_URL", ""),
		RedisTLSInsecure:   flag("REDIS_TLS_INSECURE", false),
		AsynqQueueName:     str("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:   number("ASYNQ_CONCURRENCY", 10),
		DefaultPhoneRegion: strings.ToUpper(str("DEFAULT_PHONE_REGION", "LB")),
	}
}

func (c *Config) validate(requireAuth bool) error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if requireAuth && c.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		errs = append(errs, errors.New("CORS_ALLOW_CREDENTIALS cannot be true when all origins are allowed"))
	}
	if c.AsynqConcurrency < 1 {
		errs = append(errs, fmt.Errorf("ASYNQ_CONCURRENCY must be positive, got %d", c.AsynqConcurrency))
	}
	return errors.Join(errs...)
}

func str(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func flag(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.EqualFold(strings.TrimSpace(val), "true")
}

func number(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0
	}
	return n
}

func list(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
