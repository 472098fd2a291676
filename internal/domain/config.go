package domain

import (
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	DonationLog DonationLogConfig `mapstructure:"donation_log"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// RateLimit is the sustained requests-per-second budget per client;
	// RateBurst is the short burst allowance on top of it.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// DatabaseConfig represents PostgreSQL connection configuration.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents the questionnaire cache configuration.
type CacheConfig struct {
	RedisURL     string        `mapstructure:"redis_url"`
	RedisEnabled bool          `mapstructure:"redis_enabled"`
	RedisTTL     time.Duration `mapstructure:"redis_ttl"`
	MemorySize   int           `mapstructure:"memory_size"`
	MemoryTTL    time.Duration `mapstructure:"memory_ttl"`
}

// NotifyConfig represents the webhook notification dispatcher configuration.
type NotifyConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	MaxFailures    uint32        `mapstructure:"max_failures"`
}

// DonationLogConfig represents the donation log store configuration.
type DonationLogConfig struct {
	// Driver selects the store backend: "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file location.
	Path string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
