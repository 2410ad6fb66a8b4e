package config

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. SIXCITIES_REDIS_HOST.
const EnvPrefix = "SIXCITIES"

// LoadConfig loads the configuration from defaults, an optional config.yaml and
// environment variables. Extra search paths are tried before the built-in ones.
func LoadConfig(log logger.Logger, searchPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("/etc/sixcities/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ErrInvalidConfig.WithError(err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithMessage("failed to unmarshal config").WithError(err)
	}
	cfg.Cache = loadCacheConfig(v, log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.enable_pprof", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sixcities")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "sixcities")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")
	v.SetDefault("redis.cluster_addrs", []string{})
	v.SetDefault("redis.sentinel_addrs", []string{})
	v.SetDefault("redis.sentinel_master", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window_ms", constants.DefaultRateLimitWindow.Milliseconds())
	v.SetDefault("rate_limit.public_max", constants.DefaultPublicLimit)
	v.SetDefault("rate_limit.auth_max", constants.DefaultAuthLimit)
	v.SetDefault("rate_limit.upload_max", constants.DefaultUploadLimit)
	v.SetDefault("rate_limit.user_api_max", constants.DefaultUserAPILimit)
	v.SetDefault("rate_limit.public_window_ms", 0)
	v.SetDefault("rate_limit.auth_window_ms", 0)
	v.SetDefault("rate_limit.upload_window_ms", 0)
	v.SetDefault("rate_limit.user_api_window_ms", 0)
	v.SetDefault("rate_limit.trust_forwarded_for", false)
	v.SetDefault("rate_limit.ipv6_prefix", constants.DefaultIPv6Prefix)
	v.SetDefault("rate_limit.fallback_enabled", true)
	v.SetDefault("rate_limit.store_timeout", constants.DefaultStoreTimeout.String())
	v.SetDefault("rate_limit.health_interval", constants.DefaultHealthInterval.String())

	v.SetDefault("cache.city_ttl", constants.DefaultCityTTLSeconds)
	v.SetDefault("cache.user_ttl", constants.DefaultUserTTLSeconds)
	v.SetDefault("cache.offer_ttl", constants.DefaultOfferTTLSeconds)
	v.SetDefault("cache.offer_list_ttl", constants.DefaultOfferListTTLSeconds)
	v.SetDefault("cache.comment_ttl", constants.DefaultCommentTTLSeconds)
	v.SetDefault("cache.favorite_ttl", constants.DefaultFavoriteTTLSeconds)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "sixcities")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", true)
	v.SetDefault("tracing.service_name", "sixcities")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.jaeger_endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

func loadCacheConfig(v *viper.Viper, log logger.Logger) CacheConfig {
	return CacheConfig{
		CityTTL:      ttlSeconds(v, log, "cache.city_ttl", constants.DefaultCityTTLSeconds),
		UserTTL:      ttlSeconds(v, log, "cache.user_ttl", constants.DefaultUserTTLSeconds),
		OfferTTL:     ttlSeconds(v, log, "cache.offer_ttl", constants.DefaultOfferTTLSeconds),
		OfferListTTL: ttlSeconds(v, log, "cache.offer_list_ttl", constants.DefaultOfferListTTLSeconds),
		CommentTTL:   ttlSeconds(v, log, "cache.comment_ttl", constants.DefaultCommentTTLSeconds),
		FavoriteTTL:  ttlSeconds(v, log, "cache.favorite_ttl", constants.DefaultFavoriteTTLSeconds),
	}
}

// ttlSeconds reads key as a string so that a malformed value falls back to
// the default instead of failing the whole load.
func ttlSeconds(v *viper.Viper, log logger.Logger, key string, fallback int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		if log != nil {
			log.Warn(context.Background(), "invalid cache ttl, using default",
				logger.String("key", key),
				logger.String("value", raw),
				logger.Int("default", fallback),
			)
		}
		return fallback
	}
	return n
}
