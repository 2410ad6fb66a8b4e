package config

import (
	"fmt"
	"time"

	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	// Cache TTLs are parsed leniently by the loader, see loadCacheConfig.
	Cache CacheConfig `mapstructure:"-"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnablePprof     bool          `mapstructure:"enable_pprof"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Mode           string        `mapstructure:"mode"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ClusterAddrs   []string      `mapstructure:"cluster_addrs"`
	SentinelAddrs  []string      `mapstructure:"sentinel_addrs"`
	SentinelMaster string        `mapstructure:"sentinel_master"`
}

// RateLimitConfig carries the per-tier budgets. Window overrides of zero
// mean "use WindowMs".
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	WindowMs          int64         `mapstructure:"window_ms"`
	PublicMax         int64         `mapstructure:"public_max"`
	AuthMax           int64         `mapstructure:"auth_max"`
	UploadMax         int64         `mapstructure:"upload_max"`
	UserAPIMax        int64         `mapstructure:"user_api_max"`
	PublicWindowMs    int64         `mapstructure:"public_window_ms"`
	AuthWindowMs      int64         `mapstructure:"auth_window_ms"`
	UploadWindowMs    int64         `mapstructure:"upload_window_ms"`
	UserAPIWindowMs   int64         `mapstructure:"user_api_window_ms"`
	TrustForwardedFor bool          `mapstructure:"trust_forwarded_for"`
	IPv6Prefix        int           `mapstructure:"ipv6_prefix"`
	FallbackEnabled   bool          `mapstructure:"fallback_enabled"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout"`
	HealthInterval    time.Duration `mapstructure:"health_interval"`
}

// TierLimit returns the request budget configured for tier.
func (c *RateLimitConfig) TierLimit(tier constants.RateLimitTier) int64 {
	switch tier {
	case constants.TierAuth:
		return c.AuthMax
	case constants.TierUpload:
		return c.UploadMax
	case constants.TierUserAPI:
		return c.UserAPIMax
	default:
		return c.PublicMax
	}
}

// TierWindow returns the window length configured for tier.
func (c *RateLimitConfig) TierWindow(tier constants.RateLimitTier) time.Duration {
	override := int64(0)
	switch tier {
	case constants.TierAuth:
		override = c.AuthWindowMs
	case constants.TierUpload:
		override = c.UploadWindowMs
	case constants.TierUserAPI:
		override = c.UserAPIWindowMs
	default:
		override = c.PublicWindowMs
	}
	if override != 0 {
		return time.Duration(override) * time.Millisecond
	}
	return time.Duration(c.WindowMs) * time.Millisecond
}

// CacheConfig holds per entity family TTLs in seconds.
type CacheConfig struct {
	CityTTL      int
	UserTTL      int
	OfferTTL     int
	OfferListTTL int
	CommentTTL   int
	FavoriteTTL  int
}

// JWTConfig holds the HS256 secret used to sign and verify principal tokens.
// An empty secret disables principal resolution.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig controls the span pipeline. Spans carry ids into the logs
// whenever tracing is enabled; they leave the process only when
// JaegerEndpoint is set.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Validate checks for essential configuration values.
// Any failure is a startup error; the process must refuse to run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig.WithMessage("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return errors.ErrInvalidConfig.WithMessage("redis.port must be in 1..65535, got %d", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return errors.ErrInvalidConfig.WithMessage("redis.db must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.ErrInvalidConfig.WithMessage("tracing.sample_ratio must be in 0..1, got %g", c.Tracing.SampleRatio)
	}
	return c.RateLimit.Validate()
}

// Validate rejects non-positive budgets and windows.
func (c *RateLimitConfig) Validate() error {
	for _, tier := range constants.RateLimitTiers {
		if limit := c.TierLimit(tier); limit <= 0 {
			return errors.ErrInvalidConfig.WithMessage("rate_limit: budget for tier %q must be positive, got %d", tier, limit)
		}
		if window := c.TierWindow(tier); window <= 0 {
			return errors.ErrInvalidConfig.WithMessage("rate_limit: window for tier %q must be positive, got %s", tier, window)
		}
	}
	if c.IPv6Prefix <= 0 || c.IPv6Prefix > 128 {
		return errors.ErrInvalidConfig.WithMessage("rate_limit.ipv6_prefix must be in 1..128, got %d", c.IPv6Prefix)
	}
	if c.StoreTimeout <= 0 {
		return errors.ErrInvalidConfig.WithMessage("rate_limit.store_timeout must be positive")
	}
	return nil
}
