// Package cache implements the cache-aside layer in front of the system of record.
//
// Every operation fails soft: a store outage, a timeout or an undecodable
// entry is reported to the caller as a miss (or silently skipped for writes)
// and never as an error.
package cache

import (
	"context"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

var partEscaper = strings.NewReplacer("%", "%25", constants.KeySeparator, "%3A")

// GenerateKey joins prefix and parts with the key separator. Separator and
// escape characters inside parts are percent-encoded, so distinct part
// tuples always produce distinct keys.
func GenerateKey(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteString(constants.KeySeparator)
		b.WriteString(partEscaper.Replace(p))
	}
	return b.String()
}

// Service is the generic cache over a shared Store.
type Service struct {
	store   redis.Store
	logger  logger.Logger
	metrics *monitoring.Metrics
	group   singleflight.Group
	warn    *rate.Sometimes
}

// NewService creates a cache service. metrics may be nil.
func NewService(store redis.Store, log logger.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  log.WithComponent("cache"),
		metrics: metrics,
		warn:    &rate.Sometimes{Interval: 30 * time.Second},
	}
}

// Get decodes the entry at key into dst and reports whether it was a hit.
func (s *Service) Get(ctx context.Context, key string, dst any) bool {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			s.record(key, resultMiss)
		} else {
			s.record(key, resultError)
			s.storeFailed(ctx, "get", key, err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.record(key, resultError)
		s.logger.Warn(ctx, "Discarding undecodable cache entry", logger.String("key", key), logger.Error(err))
		_ = s.store.Delete(ctx, key)
		return false
	}

	s.record(key, resultHit)
	return true
}

// Set stores value under key. ttlSeconds <= 0 stores without expiry.
func (s *Service) Set(ctx context.Context, key string, value any, ttlSeconds int) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn(ctx, "Cannot encode cache value", logger.String("key", key), logger.Error(err))
		return
	}
	if err := s.store.Set(ctx, key, raw, seconds(ttlSeconds)); err != nil {
		s.storeFailed(ctx, "set", key, err)
	}
}

// Delete removes keys. Missing keys are ignored.
func (s *Service) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.storeFailed(ctx, "delete", strings.Join(keys, ","), err)
	}
}

// Exists reports whether key is present. An unreachable store reports false.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.storeFailed(ctx, "exists", key, err)
		return false
	}
	return ok
}

// Clear flushes the whole store. Maintenance only; never call it on a request path.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Error(ctx, "Cache clear failed", err)
		return err
	}
	s.logger.Info(ctx, "Cache cleared")
	return nil
}

// Track records keys in the registry set so they can be invalidated together
// later. The registry expiry is refreshed on every call.
func (s *Service) Track(ctx context.Context, registry string, ttlSeconds int, keys ...string) {
	if err := s.store.AddToSet(ctx, registry, seconds(ttlSeconds), keys...); err != nil {
		s.storeFailed(ctx, "track", registry, err)
	}
}

// DeleteTracked deletes every key recorded in registry, and the registry itself.
func (s *Service) DeleteTracked(ctx context.Context, registry string) {
	keys, err := s.store.SetMembers(ctx, registry)
	if err != nil {
		s.storeFailed(ctx, "members", registry, err)
		return
	}
	s.Delete(ctx, append(keys, registry)...)
}

func (s *Service) storeFailed(ctx context.Context, op, key string, err error) {
	s.logger.Debug(ctx, "Cache operation degraded", logger.String("op", op), logger.String("key", key), logger.Error(err))
	s.warn.Do(func() {
		s.logger.Warn(ctx, "Cache store unavailable, serving from system of record", logger.Error(err))
	})
}

func (s *Service) record(key, result string) {
	prefix, _, _ := strings.Cut(key, constants.KeySeparator)
	s.metrics.RecordCacheResult(prefix, result)
}

func seconds(ttl int) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return time.Duration(ttl) * time.Second
}

// GetAs is the typed form of Service.Get.
func GetAs[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var v T
	if !s.Get(ctx, key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Loader reads a value from the system of record. found=false means the
// value does not exist; it is returned to the caller and not cached.
type Loader[T any] func(ctx context.Context) (value T, found bool, err error)

type loadOptions struct {
	registry    string
	registryTTL int
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// TrackIn records the key in registry before it is populated.
func TrackIn(registry string, ttlSeconds int) LoadOption {
	return func(o *loadOptions) {
		o.registry = registry
		o.registryTTL = ttlSeconds
	}
}

type loadResult[T any] struct {
	value T
	found bool
}

// Load returns the cached value at key or calls loader and caches what it
// finds. Concurrent misses on the same key share a single loader call.
func Load[T any](ctx context.Context, s *Service, key string, ttlSeconds int, loader Loader[T], opts ...LoadOption) (T, bool, error) {
	if v, ok := GetAs[T](ctx, s, key); ok {
		return v, true, nil
	}

	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err, _ := s.group.Do(key, func() (interface{}, error) {
		v, found, err := loader(ctx)
		if err != nil || !found {
			return loadResult[T]{value: v, found: found}, err
		}
		// Track first: a key cached but missing from its registry would
		// survive invalidation until it expires.
		if o.registry != "" {
			s.Track(ctx, o.registry, o.registryTTL, key)
		}
		s.Set(ctx, key, v, ttlSeconds)
		return loadResult[T]{value: v, found: true}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	r := res.(loadResult[T])
	return r.value, r.found, nil
}
