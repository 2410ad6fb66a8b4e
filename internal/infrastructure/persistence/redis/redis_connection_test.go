package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/logger"
)

func newTestConnection(t *testing.T) (*miniredis.Miniredis, *redis.Connection) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	conn := redis.NewConnectionWithClient(&redis.Config{DialTimeout: 200 * time.Millisecond}, client, logger.NewNoopLogger())
	t.Cleanup(func() { _ = conn.Close() })
	return mr, conn
}

type transitions struct {
	mu     sync.Mutex
	events []bool
}

func (tr *transitions) record(available bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, available)
}

func (tr *transitions) snapshot() []bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]bool(nil), tr.events...)
}

func TestConnection_StartsUnavailable(t *testing.T) {
	_, conn := newTestConnection(t)
	assert.False(t, conn.IsAvailable())
	assert.NotNil(t, conn.Client())
}

func TestConnection_ConnectNotifiesListeners(t *testing.T) {
	_, conn := newTestConnection(t)

	var tr transitions
	conn.Subscribe(tr.record)
	assert.Empty(t, tr.snapshot())

	require.NoError(t, conn.Connect(context.Background()))
	assert.True(t, conn.IsAvailable())
	assert.Equal(t, []bool{true}, tr.snapshot())

	// A second successful probe is not a transition.
	require.NoError(t, conn.Connect(context.Background()))
	assert.Equal(t, []bool{true}, tr.snapshot())
}

func TestConnection_SubscribeAfterConnect(t *testing.T) {
	_, conn := newTestConnection(t)
	require.NoError(t, conn.Connect(context.Background()))

	var tr transitions
	conn.Subscribe(tr.record)
	assert.Equal(t, []bool{true}, tr.snapshot())
}

func TestConnection_LostAndRestored(t *testing.T) {
	mr, conn := newTestConnection(t)
	ctx := context.Background()

	var tr transitions
	conn.Subscribe(tr.record)
	require.NoError(t, conn.Connect(ctx))

	mr.Close()
	assert.Error(t, conn.Connect(ctx))
	assert.False(t, conn.IsAvailable())

	require.NoError(t, mr.Restart())
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsAvailable())

	assert.Equal(t, []bool{true, false, true}, tr.snapshot())
}

func TestConnection_MarkUnavailable(t *testing.T) {
	_, conn := newTestConnection(t)
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))

	var tr transitions
	conn.Subscribe(tr.record)

	conn.MarkUnavailable(ctx, assert.AnError)
	assert.False(t, conn.IsAvailable())
	assert.Equal(t, []bool{true, false}, tr.snapshot())

	// Ping bypasses the flag.
	assert.NoError(t, conn.Ping(ctx))
	assert.False(t, conn.IsAvailable())
}

func TestConnection_RunProbesUntilCancelled(t *testing.T) {
	_, conn := newTestConnection(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, conn.IsAvailable, time.Second, 5*time.Millisecond)

	// Run flips the flag back after a spurious failure.
	conn.MarkUnavailable(ctx, assert.AnError)
	assert.Eventually(t, conn.IsAvailable, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewConnection_RejectsIncompleteModes(t *testing.T) {
	_, err := redis.NewConnection(&redis.Config{Mode: redis.ModeCluster}, logger.NewNoopLogger())
	assert.Error(t, err)

	_, err = redis.NewConnection(&redis.Config{Mode: redis.ModeSentinel}, logger.NewNoopLogger())
	assert.Error(t, err)

	_, err = redis.NewConnection(&redis.Config{Mode: "ring"}, logger.NewNoopLogger())
	assert.Error(t, err)

	conn, err := redis.NewConnection(&redis.Config{}, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.False(t, conn.IsAvailable())
	require.NoError(t, conn.Close())
}
