package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

func newStore(t *testing.T) (*miniredis.Miniredis, *redis.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	conn := redis.NewConnectionWithClient(nil, client, logger.NewNoopLogger())
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Connect(context.Background()))
	return mr, redis.NewRedisStore(conn, redis.DefaultStoreOptions(), logger.NewNoopLogger())
}

func TestEvictKeys(t *testing.T) {
	mr, store := newStore(t)
	svc := cache.NewService(store, logger.NewNoopLogger(), nil)
	require.NoError(t, mr.Set("cities:list", "[]"))
	require.NoError(t, mr.Set("cities:id:1", "{}"))
	require.NoError(t, mr.Set("users:id:1", "{}"))

	var out bytes.Buffer
	require.NoError(t, evictKeys(context.Background(), &out, svc, []string{"cities:list", "cities:id:1"}))
	assert.Equal(t, "evicted 2 key(s)\n", out.String())
	assert.False(t, mr.Exists("cities:list"))
	assert.False(t, mr.Exists("cities:id:1"))
	assert.True(t, mr.Exists("users:id:1"))

	out.Reset()
	require.NoError(t, clearCache(context.Background(), &out, svc))
	assert.False(t, mr.Exists("users:id:1"))
}

func TestEvictOfferLists(t *testing.T) {
	mr, store := newStore(t)
	svc := cache.NewService(store, logger.NewNoopLogger(), nil)
	offers := cache.NewOfferCache(svc, 0, 0, 0)

	svc.Set(context.Background(), offers.ListKey(60), []string{}, 60)
	svc.Track(context.Background(), offers.Registry(), 60, offers.ListKey(60))
	require.True(t, mr.Exists(offers.ListKey(60)))

	var out bytes.Buffer
	require.NoError(t, evictOfferLists(context.Background(), &out, svc))
	assert.False(t, mr.Exists(offers.ListKey(60)))
	assert.Contains(t, out.String(), offers.Registry())
}

func TestResetWindow(t *testing.T) {
	mr, store := newStore(t)
	settings := &config.RateLimitConfig{WindowMs: 60_000, PublicMax: 1, AuthMax: 1, UploadMax: 1, UserAPIMax: 1, FallbackEnabled: true}
	limiter, err := ratelimit.NewLimiter(ratelimit.ConfigFromSettings(settings), store, logger.NewNoopLogger(), nil)
	require.NoError(t, err)
	limiter.Start(context.Background(), nil)
	require.Equal(t, ratelimit.StateReady, limiter.State())

	ctx := context.Background()
	limiter.Admit(ctx, "auth", "ip:203.0.113.7")
	require.False(t, limiter.Admit(ctx, "auth", "ip:203.0.113.7").Allowed)

	var out bytes.Buffer
	require.NoError(t, resetWindow(ctx, &out, limiter, "auth", "ip:203.0.113.7"))
	assert.Equal(t, "reset "+limiter.Key("auth", "ip:203.0.113.7")+"\n", out.String())
	assert.False(t, mr.Exists(limiter.Key("auth", "ip:203.0.113.7")))
	assert.True(t, limiter.Admit(ctx, "auth", "ip:203.0.113.7").Allowed)

	err = resetWindow(ctx, &out, limiter, "bogus", "ip:203.0.113.7")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestIssueToken(t *testing.T) {
	tokens := crypto.NewJWTManager(config.JWTConfig{Secret: "s3cret", TTL: time.Hour}, logger.NewNoopLogger())

	var out bytes.Buffer
	require.NoError(t, issueToken(context.Background(), &out, tokens, "user-1"))
	token, _, _ := strings.Cut(out.String(), "\n")
	sub, err := tokens.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	disabled := crypto.NewJWTManager(config.JWTConfig{}, logger.NewNoopLogger())
	err = issueToken(context.Background(), &out, disabled, "user-1")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
