// Package redis provides the shared key-value store client: connection lifecycle,
// liveness tracking and the Store capability used by the cache and the rate limiter.
package redis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/pkg/logger"
)

// ConnectionMode defines Redis deployment mode
type ConnectionMode string

const (
	// ModeStandalone represents single Redis instance
	ModeStandalone ConnectionMode = "standalone"
	// ModeCluster represents Redis cluster mode
	ModeCluster ConnectionMode = "cluster"
	// ModeSentinel represents Redis sentinel mode for high availability
	ModeSentinel ConnectionMode = "sentinel"
)

// Config holds Redis connection configuration parameters.
type Config struct {
	Mode ConnectionMode

	Host     string
	Port     int
	Password string
	DB       int

	ClusterAddrs   []string
	SentinelAddrs  []string
	SentinelMaster string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ConfigFromSettings converts the loaded application settings.
func ConfigFromSettings(cfg *config.RedisConfig) *Config {
	return &Config{
		Mode:           ConnectionMode(cfg.Mode),
		Host:           cfg.Host,
		Port:           cfg.Port,
		Password:       cfg.Password,
		DB:             cfg.DB,
		ClusterAddrs:   cfg.ClusterAddrs,
		SentinelAddrs:  cfg.SentinelAddrs,
		SentinelMaster: cfg.SentinelMaster,
		PoolSize:       cfg.PoolSize,
		MinIdleConns:   cfg.MinIdleConns,
		DialTimeout:    cfg.DialTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}
}

// AvailabilityListener is notified on every liveness transition.
type AvailabilityListener func(available bool)

// Connection owns the single process-wide Redis handle. The handle is created
// eagerly (go-redis dials lazily) so callers can hold it before the server is
// reachable; IsAvailable reports whether the last probe succeeded.
type Connection struct {
	config    *Config
	client    redis.UniversalClient
	logger    logger.Logger
	available atomic.Bool

	mu        sync.Mutex
	listeners []AvailabilityListener
}

// NewConnection builds the client for the configured mode without touching the network.
func NewConnection(cfg *Config, log logger.Logger) (*Connection, error) {
	setDefaults(cfg)

	var client redis.UniversalClient
	switch cfg.Mode {
	case ModeStandalone:
		client = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	case ModeCluster:
		if len(cfg.ClusterAddrs) == 0 {
			return nil, fmt.Errorf("cluster addresses not configured")
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	case ModeSentinel:
		if len(cfg.SentinelAddrs) == 0 || cfg.SentinelMaster == "" {
			return nil, fmt.Errorf("sentinel addresses or master name not configured")
		}
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.SentinelMaster,
			SentinelAddrs: cfg.SentinelAddrs,
			Password:      cfg.Password,
			DB:            cfg.DB,
			PoolSize:      cfg.PoolSize,
			MinIdleConns:  cfg.MinIdleConns,
			DialTimeout:   cfg.DialTimeout,
			ReadTimeout:   cfg.ReadTimeout,
			WriteTimeout:  cfg.WriteTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported Redis mode: %s", cfg.Mode)
	}

	return NewConnectionWithClient(cfg, client, log), nil
}

// NewConnectionWithClient wraps an existing client, e.g. one pointed at miniredis.
func NewConnectionWithClient(cfg *Config, client redis.UniversalClient, log logger.Logger) *Connection {
	if cfg == nil {
		cfg = &Config{}
	}
	setDefaults(cfg)
	return &Connection{
		config: cfg,
		client: client,
		logger: log.WithComponent("redis"),
	}
}

func setDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeStandalone
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
}

// Client returns the underlying client. It is never nil.
func (c *Connection) Client() redis.UniversalClient {
	return c.client
}

// IsAvailable is the liveness flag maintained by Connect and Run.
func (c *Connection) IsAvailable() bool {
	return c.available.Load()
}

// Subscribe registers fn for liveness transitions. If the connection is
// already available fn is invoked immediately with true.
func (c *Connection) Subscribe(fn AvailabilityListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()

	if c.IsAvailable() {
		fn(true)
	}
}

// Connect performs a single ping and updates the liveness flag.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.probe(ctx); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Ping checks the server without touching the liveness flag.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Run probes the server every interval until ctx is done, flipping the
// liveness flag and notifying listeners on every transition.
func (c *Connection) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	_ = c.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.probe(ctx)
		}
	}
}

func (c *Connection) probe(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	err := c.client.Ping(pingCtx).Err()
	c.setAvailable(ctx, err == nil, err)
	return err
}

func (c *Connection) setAvailable(ctx context.Context, available bool, cause error) {
	if c.available.Swap(available) == available {
		return
	}

	if available {
		c.logger.Info(ctx, "Redis connection established",
			logger.String("mode", string(c.config.Mode)),
			logger.Int("pool_size", c.config.PoolSize),
		)
	} else {
		c.logger.Warn(ctx, "Redis connection lost", logger.Error(cause))
	}

	c.mu.Lock()
	listeners := make([]AvailabilityListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(available)
	}
}

// MarkUnavailable flips the liveness flag down after an operation failure so
// other requests stop waiting on a dead server until the next successful probe.
func (c *Connection) MarkUnavailable(ctx context.Context, cause error) {
	c.setAvailable(ctx, false, cause)
}

// Close releases the client.
func (c *Connection) Close() error {
	c.setAvailable(context.Background(), false, fmt.Errorf("connection closed"))
	if err := c.client.Close(); err != nil {
		c.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	c.logger.Info(context.Background(), "Redis connection closed")
	return nil
}
