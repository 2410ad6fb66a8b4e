package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/logger"
)

type city struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *cache.Service, *monitoring.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	conn := redis.NewConnectionWithClient(nil, client, logger.NewNoopLogger())
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	store := redis.NewRedisStore(conn, redis.DefaultStoreOptions(), logger.NewNoopLogger())
	return mr, cache.NewService(store, logger.NewNoopLogger(), metrics), metrics
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "cities:list", cache.GenerateKey("cities", "list"))
	assert.Equal(t, "offers:city:42:60", cache.GenerateKey("offers", "city", "42", "60"))
	assert.Equal(t, "cities", cache.GenerateKey("cities"))

	// ("a:b", "c") and ("a", "b:c") must not collide.
	k1 := cache.GenerateKey("p", "a:b", "c")
	k2 := cache.GenerateKey("p", "a", "b:c")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, "p:a%3Ab:c", k1)

	// The escape character is escaped too.
	assert.NotEqual(t, cache.GenerateKey("p", "%3A"), cache.GenerateKey("p", ":"))
	assert.Equal(t, "p:%253A", cache.GenerateKey("p", "%3A"))
}

func TestService_RoundTripAndExpiry(t *testing.T) {
	mr, svc, metrics := newTestCache(t)
	ctx := context.Background()

	want := city{ID: "1", Name: "Amsterdam", Latitude: 52.370216, Longitude: 4.895168}
	svc.Set(ctx, "cities:id:1", want, 60)

	got, ok := cache.GetAs[city](ctx, svc, "cities:id:1")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.True(t, svc.Exists(ctx, "cities:id:1"))

	mr.FastForward(61 * time.Second)
	_, ok = cache.GetAs[city](ctx, svc, "cities:id:1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "cities:id:1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("cities", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("cities", "miss")))
}

func TestService_ZeroTTLDoesNotExpire(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	svc.Set(ctx, "cities:list", []city{{ID: "1"}}, 0)
	mr.FastForward(24 * time.Hour)

	got, ok := cache.GetAs[[]city](ctx, svc, "cities:list")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestService_CorruptEntryIsMiss(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("cities:id:1", "{not json"))

	var dst city
	assert.False(t, svc.Get(ctx, "cities:id:1", &dst))
	assert.False(t, mr.Exists("cities:id:1"))
}

func TestService_DeleteAndClear(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	svc.Set(ctx, "a", 1, 0)
	svc.Set(ctx, "b", 2, 0)
	svc.Set(ctx, "c", 3, 0)

	svc.Delete(ctx, "a", "b")
	assert.False(t, svc.Exists(ctx, "a"))
	assert.True(t, svc.Exists(ctx, "c"))

	require.NoError(t, svc.Clear(ctx))
	assert.Empty(t, mr.Keys())
}

func TestService_TrackAndDeleteTracked(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	svc.Set(ctx, "offers:list:10", []int{1}, 0)
	svc.Set(ctx, "offers:list:60", []int{1, 2}, 0)
	svc.Set(ctx, "offers:id:1", 1, 0)
	svc.Track(ctx, "offers:registry", 300, "offers:list:10", "offers:list:60")

	svc.DeleteTracked(ctx, "offers:registry")

	assert.False(t, mr.Exists("offers:list:10"))
	assert.False(t, mr.Exists("offers:list:60"))
	assert.False(t, mr.Exists("offers:registry"))
	assert.True(t, mr.Exists("offers:id:1"))
}

// Every operation degrades silently when the store is unreachable.
func TestService_UnavailableStoreIsTransparent(t *testing.T) {
	svc := cache.NewService(redis.NoopStore{}, logger.NewNoopLogger(), nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		svc.Set(ctx, "cities:id:1", city{ID: "1"}, 60)
		svc.Delete(ctx, "cities:id:1")
		svc.Track(ctx, "offers:registry", 60, "offers:list:60")
		svc.DeleteTracked(ctx, "offers:registry")
	})
	_, ok := cache.GetAs[city](ctx, svc, "cities:id:1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "cities:id:1"))
	assert.Error(t, svc.Clear(ctx))

	calls := 0
	got, found, err := cache.Load(ctx, svc, "cities:id:1", 60, func(context.Context) (city, bool, error) {
		calls++
		return city{ID: "1", Name: "Paris"}, true, nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Paris", got.Name)
	assert.Equal(t, 1, calls)
}

func TestService_StoreGoingDownMidway(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	svc.Set(ctx, "cities:id:1", city{ID: "1"}, 60)
	mr.Close()

	_, ok := cache.GetAs[city](ctx, svc, "cities:id:1")
	assert.False(t, ok)
	assert.NotPanics(t, func() { svc.Set(ctx, "cities:id:2", city{ID: "2"}, 60) })
}

func TestLoad_PopulatesOnMiss(t *testing.T) {
	_, svc, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (city, bool, error) {
		calls.Add(1)
		return city{ID: "7", Name: "Hamburg"}, true, nil
	}

	for i := 0; i < 3; i++ {
		got, found, err := cache.Load(ctx, svc, "cities:id:7", 60, loader)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Hamburg", got.Name)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoad_NotFoundIsNotCached(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	var calls int
	loader := func(context.Context) (*city, bool, error) {
		calls++
		return nil, false, nil
	}

	for i := 0; i < 2; i++ {
		got, found, err := cache.Load(ctx, svc, "cities:id:404", 60, loader)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	}
	assert.Equal(t, 2, calls)
	assert.False(t, mr.Exists("cities:id:404"))
}

func TestLoad_PropagatesLoaderError(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	boom := errors.New("db down")

	_, found, err := cache.Load(context.Background(), svc, "cities:list", 60, func(context.Context) ([]city, bool, error) {
		return nil, false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, found)
	assert.False(t, mr.Exists("cities:list"))
}

func TestLoad_TracksKeyInRegistry(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()

	_, _, err := cache.Load(ctx, svc, "offers:list:60", 60, func(context.Context) ([]int, bool, error) {
		return []int{1, 2}, true, nil
	}, cache.TrackIn("offers:registry", 300))
	require.NoError(t, err)

	members, err := mr.Members("offers:registry")
	require.NoError(t, err)
	assert.Equal(t, []string{"offers:list:60"}, members)
}

// recordingStore logs the writes that reach the store, in order.
type recordingStore struct {
	redis.Store
	mu  sync.Mutex
	ops []string
}

func (s *recordingStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.record("set " + key)
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *recordingStore) AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	s.record("track " + key)
	return s.Store.AddToSet(ctx, key, ttl, members...)
}

func TestLoad_TracksBeforePopulating(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	conn := redis.NewConnectionWithClient(nil, client, logger.NewNoopLogger())
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	store := &recordingStore{Store: redis.NewRedisStore(conn, redis.DefaultStoreOptions(), logger.NewNoopLogger())}
	svc := cache.NewService(store, logger.NewNoopLogger(), nil)

	_, _, err := cache.Load(context.Background(), svc, "offers:list:60", 60, func(context.Context) ([]int, bool, error) {
		return []int{1}, true, nil
	}, cache.TrackIn("offers:registry", 300))
	require.NoError(t, err)

	assert.Equal(t, []string{"track offers:registry", "set offers:list:60"}, store.ops)
	assert.True(t, mr.Exists("offers:list:60"))
}

func TestLoad_CollapsesConcurrentMisses(t *testing.T) {
	_, svc, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (city, bool, error) {
		calls.Add(1)
		<-release
		return city{ID: "3", Name: "Cologne"}, true, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]city, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, _, err := cache.Load(ctx, svc, "cities:id:3", 60, loader)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "Cologne", r.Name)
	}
}
