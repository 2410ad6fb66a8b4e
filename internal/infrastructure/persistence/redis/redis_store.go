package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

var _ Store = (*RedisStore)(nil)

// incrWithExpiryScript increments the window counter and arms its expiry in
// the same round trip. The expiry is (re)armed when the key is new or has
// no TTL, so a counter can never outlive its window.
var incrWithExpiryScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// StoreOptions tunes the Redis adapter.
type StoreOptions struct {
	// OpTimeout bounds every round trip; exceeding it is a failure.
	OpTimeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
}

// DefaultStoreOptions returns defaults suited to a request path.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		OpTimeout:       250 * time.Millisecond,
		BreakerFailures: 5,
		BreakerCooldown: 5 * time.Second,
	}
}

// RedisStore implements Store on top of a Connection.
type RedisStore struct {
	conn      *Connection
	opts      StoreOptions
	breaker   *gobreaker.CircuitBreaker
	logger    logger.Logger
	logSample *rate.Sometimes
}

// NewRedisStore creates the adapter. Operations fail fast with
// errors.ErrStoreUnavailable while the connection is down or the breaker is open.
func NewRedisStore(conn *Connection, opts StoreOptions, log logger.Logger) *RedisStore {
	defaults := DefaultStoreOptions()
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaults.OpTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaults.BreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = defaults.BreakerCooldown
	}

	s := &RedisStore{
		conn:      conn,
		opts:      opts,
		logger:    log.WithComponent("redis_store"),
		logSample: &rate.Sometimes{Interval: 10 * time.Second},
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-store",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn(context.Background(), "Redis circuit breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				conn.MarkUnavailable(context.Background(), fmt.Errorf("circuit breaker open"))
			}
		},
	})

	return s
}

// IsAvailable reports the connection liveness flag.
func (s *RedisStore) IsAvailable() bool {
	return s.conn.IsAvailable()
}

// do runs fn under the op timeout and the breaker. redis.Nil passes through
// untouched so callers can map it to a miss.
func (s *RedisStore) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !s.conn.IsAvailable() {
		return errors.ErrStoreUnavailable
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(opCtx)
	})
	if err == nil || stderrors.Is(err, redis.Nil) {
		return err
	}

	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.ErrStoreUnavailable.WithError(err)
	}

	s.logSample.Do(func() {
		s.logger.Warn(ctx, "Redis operation failed", logger.String("op", op), logger.Error(err))
	})
	return errors.ErrStoreUnavailable.WithError(err)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.do(ctx, "get", func(ctx context.Context) error {
		var err error
		val, err = s.conn.Client().Get(ctx, key).Bytes()
		return err
	})
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.do(ctx, "set", func(ctx context.Context) error {
		return s.conn.Client().Set(ctx, key, value, ttl).Err()
	})
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.do(ctx, "del", func(ctx context.Context) error {
		return s.conn.Client().Del(ctx, keys...).Err()
	})
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := s.do(ctx, "exists", func(ctx context.Context) error {
		var err error
		n, err = s.conn.Client().Exists(ctx, key).Result()
		return err
	})
	return n > 0, err
}

func (s *RedisStore) Flush(ctx context.Context) error {
	err := s.do(ctx, "flushdb", func(ctx context.Context) error {
		return s.conn.Client().FlushDB(ctx).Err()
	})
	if err == nil {
		s.logger.Warn(ctx, "Redis database flushed")
	}
	return err
}

func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var res []int64
	err := s.do(ctx, "incr_with_expiry", func(ctx context.Context) error {
		var err error
		res, err = incrWithExpiryScript.Run(ctx, s.conn.Client(), []string{key}, window.Milliseconds()).Int64Slice()
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, errors.ErrStoreUnavailable.WithMessage("unexpected script result length %d", len(res))
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

func (s *RedisStore) AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.do(ctx, "sadd", func(ctx context.Context) error {
		_, err := s.conn.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, key, args...)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	})
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := s.do(ctx, "smembers", func(ctx context.Context) error {
		var err error
		members, err = s.conn.Client().SMembers(ctx, key).Result()
		return err
	})
	return members, err
}
