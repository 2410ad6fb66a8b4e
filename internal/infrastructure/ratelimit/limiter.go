package ratelimit

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// State is the limiter's lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Source names the counter a decision was taken on.
type Source string

const (
	SourceStore    Source = "store"
	SourceFallback Source = "fallback"
	// SourceBypass means no counter was available and the request was let through.
	SourceBypass Source = "bypass"
)

// TierPolicy is the budget of one tier.
type TierPolicy struct {
	Limit  int64
	Window time.Duration
}

// Config configures a Limiter.
type Config struct {
	Policies  map[Tier]TierPolicy
	KeyPrefix string

	// FallbackEnabled selects process-local counting while the store is
	// unavailable. When false such requests are admitted uncounted.
	FallbackEnabled bool
}

// ConfigFromSettings builds a Config from the loaded rate_limit section.
func ConfigFromSettings(cfg *config.RateLimitConfig) Config {
	policies := make(map[Tier]TierPolicy, len(constants.RateLimitTiers))
	for _, tier := range constants.RateLimitTiers {
		policies[tier] = TierPolicy{Limit: cfg.TierLimit(tier), Window: cfg.TierWindow(tier)}
	}
	return Config{
		Policies:        policies,
		KeyPrefix:       constants.KeyPrefixRateLimit,
		FallbackEnabled: cfg.FallbackEnabled,
	}
}

// Validate requires a positive budget and window for every tier.
func (c Config) Validate() error {
	for _, tier := range constants.RateLimitTiers {
		p, ok := c.Policies[tier]
		if !ok {
			return errors.ErrInvalidConfig.WithMessage("rate limit: no policy for tier %q", tier)
		}
		if p.Limit <= 0 {
			return errors.ErrInvalidConfig.WithMessage("rate limit: budget for tier %q must be positive, got %d", tier, p.Limit)
		}
		if p.Window <= 0 {
			return errors.ErrInvalidConfig.WithMessage("rate limit: window for tier %q must be positive, got %s", tier, p.Window)
		}
	}
	return nil
}

// Decision is the outcome of Admit.
type Decision struct {
	Allowed    bool
	Tier       Tier
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
	Source     Source
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1 for a
// rejected request.
func (d Decision) RetryAfterSeconds() int64 {
	if d.Allowed {
		return 0
	}
	return max(int64(math.Ceil(d.RetryAfter.Seconds())), 1)
}

// AvailabilityNotifier reports store liveness transitions.
type AvailabilityNotifier interface {
	Subscribe(fn redis.AvailabilityListener)
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source for fallback windows and reset times.
func WithClock(now Clock) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// Limiter admits or rejects requests per (tier, identity) fixed window.
//
// Construction is synchronous and never touches the store; Start wires the
// limiter to store availability. Until the store is reported available every
// decision is taken on the fallback counters.
type Limiter struct {
	cfg      Config
	store    redis.Store
	fallback *FallbackCounters
	state    atomic.Int32
	now      Clock
	metrics  *monitoring.Metrics
	logger   logger.Logger
	warn     *rate.Sometimes
}

// NewLimiter validates cfg and returns a limiter in StateUninitialized.
func NewLimiter(cfg Config, store redis.Store, log logger.Logger, metrics *monitoring.Metrics, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = constants.KeyPrefixRateLimit
	}
	if store == nil {
		store = redis.NoopStore{}
	}

	l := &Limiter{
		cfg:     cfg,
		store:   store,
		now:     time.Now,
		metrics: metrics,
		logger:  log.WithComponent("rate_limiter"),
		warn:    &rate.Sometimes{Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.fallback = NewFallbackCounters(l.now)
	l.state.Store(int32(StateUninitialized))

	for _, tier := range constants.RateLimitTiers {
		p := cfg.Policies[tier]
		l.logger.Info(context.Background(), "Rate limit tier configured",
			logger.String("tier", string(tier)),
			logger.Int64("limit", p.Limit),
			logger.Duration("window", p.Window),
		)
	}
	return l, nil
}

// Start moves the limiter to StateInitializing and subscribes to store
// liveness. It returns immediately; the limiter becomes Ready when the
// notifier first reports the store as available. Calling Start more than
// once has no effect.
func (l *Limiter) Start(ctx context.Context, notifier AvailabilityNotifier) {
	if !l.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return
	}
	l.logger.Info(ctx, "Rate limiter initializing")

	if notifier == nil {
		if l.store.IsAvailable() {
			l.onAvailability(true)
		}
		return
	}
	notifier.Subscribe(l.onAvailability)
}

func (l *Limiter) onAvailability(available bool) {
	for {
		cur := l.State()
		next := cur
		switch {
		case cur == StateUninitialized:
			return
		case available:
			next = StateReady
		case cur == StateReady:
			next = StateDegraded
		}
		if next == cur {
			return
		}
		if l.state.CompareAndSwap(int32(cur), int32(next)) {
			l.logger.Info(context.Background(), "Rate limiter state changed",
				logger.String("from", cur.String()),
				logger.String("to", next.String()),
			)
			return
		}
	}
}

// State returns the current lifecycle state.
func (l *Limiter) State() State {
	return State(l.state.Load())
}

// Policy returns the policy for tier, defaulting to the public policy.
func (l *Limiter) Policy(tier Tier) TierPolicy {
	if p, ok := l.cfg.Policies[tier]; ok {
		return p
	}
	return l.cfg.Policies[constants.TierPublic]
}

// Key returns the store key of the (tier, identity) window.
func (l *Limiter) Key(tier Tier, identity string) string {
	return cache.GenerateKey(l.cfg.KeyPrefix, string(tier), identity)
}

// Admit counts one request from identity against tier and decides whether it
// may proceed. It never returns an error: store failures are absorbed by the
// fallback counters.
func (l *Limiter) Admit(ctx context.Context, tier Tier, identity string) Decision {
	policy := l.Policy(tier)
	key := l.Key(tier, identity)

	if l.State() == StateReady {
		count, ttl, err := l.store.IncrWithExpiry(ctx, key, policy.Window)
		if err == nil {
			if ttl <= 0 {
				ttl = policy.Window
			}
			return l.record(l.decide(tier, policy, count, l.now().Add(ttl), SourceStore))
		}
		l.warn.Do(func() {
			l.logger.Warn(ctx, "Rate limit store unavailable, counting locally",
				logger.String("tier", string(tier)),
				logger.Error(err),
			)
		})
	}

	if !l.cfg.FallbackEnabled {
		return l.record(Decision{
			Allowed:   true,
			Tier:      tier,
			Limit:     policy.Limit,
			Remaining: policy.Limit,
			ResetAt:   l.now().Add(policy.Window),
			Source:    SourceBypass,
		})
	}

	count, resetAt := l.fallback.Incr(key, policy.Window)
	return l.record(l.decide(tier, policy, count, resetAt, SourceFallback))
}

func (l *Limiter) decide(tier Tier, policy TierPolicy, count int64, resetAt time.Time, source Source) Decision {
	d := Decision{
		Allowed:   count <= policy.Limit,
		Tier:      tier,
		Limit:     policy.Limit,
		Remaining: max(policy.Limit-count, 0),
		ResetAt:   resetAt,
		Source:    source,
	}
	if !d.Allowed {
		d.RetryAfter = max(resetAt.Sub(l.now()), 0)
	}
	return d
}

func (l *Limiter) record(d Decision) Decision {
	l.metrics.RecordRateLimitDecision(d.Tier, d.Allowed, string(d.Source))
	return d
}

// Reset clears the window of identity in tier, both in the store and locally.
func (l *Limiter) Reset(ctx context.Context, tier Tier, identity string) error {
	key := l.Key(tier, identity)
	l.fallback.Reset(key)
	if !l.store.IsAvailable() {
		return nil
	}
	return l.store.Delete(ctx, key)
}

// Close drops the fallback counters. The store is owned by the caller.
func (l *Limiter) Close() error {
	l.fallback.Flush()
	l.logger.Info(context.Background(), "Rate limiter closed")
	return nil
}
