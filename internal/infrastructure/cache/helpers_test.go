package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/pkg/constants"
)

func TestHelpers_Keys(t *testing.T) {
	_, svc, _ := newTestCache(t)
	h := cache.NewHelpers(svc, config.CacheConfig{})

	assert.Equal(t, "cities:list", h.Cities.ListKey())
	assert.Equal(t, "cities:id:abc", h.Cities.IDKey("abc"))
	assert.Equal(t, "cities:name:paris", h.Cities.NameKey("  Paris "))
	assert.Equal(t, "users:email:jane@example.com", h.Users.EmailKey("Jane@Example.com"))
	assert.Equal(t, "offers:list:60", h.Offers.ListKey(60))
	assert.Equal(t, "offers:city:c1:10", h.Offers.CityListKey("c1", 10))
	assert.Equal(t, "offers:premium:c1", h.Offers.PremiumKey("c1"))
	assert.Equal(t, "favorites:user:u1", h.Offers.FavoritesKey("u1"))
	assert.Equal(t, "comments:offer:o1", h.Comments.ListKey("o1"))
}

func TestHelpers_TTLFallbacks(t *testing.T) {
	_, svc, _ := newTestCache(t)

	h := cache.NewHelpers(svc, config.CacheConfig{CityTTL: 42, OfferListTTL: -1})
	assert.Equal(t, 42, h.Cities.TTL())
	assert.Equal(t, constants.DefaultOfferListTTLSeconds, h.Offers.ListTTL())
	assert.Equal(t, constants.DefaultUserTTLSeconds, h.Users.TTL())
	assert.Equal(t, constants.DefaultCommentTTLSeconds, h.Comments.TTL())
	assert.Equal(t, constants.DefaultFavoriteTTLSeconds, h.Offers.FavoriteTTL())
}

func TestCityCache_UpdateDropsEveryNameEver(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()
	cities := cache.NewCityCache(svc, 60)

	svc.Set(ctx, cities.IDKey("1"), city{ID: "1", Name: "Brussels"}, 60)
	svc.Set(ctx, cities.ListKey(), []city{{ID: "1"}}, 60)
	svc.Set(ctx, cities.NameKey("Brussels"), city{ID: "1"}, 60)
	svc.Track(ctx, cities.NameRegistry("1"), 60, cities.NameKey("Brussels"))
	svc.Set(ctx, cities.IDKey("2"), city{ID: "2"}, 60)

	cities.InvalidateOnUpdate(ctx, "1")

	assert.False(t, mr.Exists("cities:id:1"))
	assert.False(t, mr.Exists("cities:list"))
	assert.False(t, mr.Exists("cities:name:brussels"))
	assert.True(t, mr.Exists("cities:id:2"))
}

func TestCityCache_CreateDropsList(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()
	cities := cache.NewCityCache(svc, 60)

	svc.Set(ctx, cities.ListKey(), []city{{ID: "1"}}, 60)
	svc.Set(ctx, cities.IDKey("1"), city{ID: "1"}, 60)

	cities.InvalidateOnCreate(ctx)

	assert.False(t, mr.Exists("cities:list"))
	assert.True(t, mr.Exists("cities:id:1"))
}

func TestOfferCache_ListsAreInvalidatedTogether(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()
	offers := cache.NewOfferCache(svc, 0, 0, 0)

	keys := []string{
		offers.ListKey(60),
		offers.ListKey(5),
		offers.CityListKey("c1", 60),
		offers.PremiumKey("c1"),
		offers.FavoritesKey("u1"),
	}
	for _, k := range keys {
		_, _, err := cache.Load(ctx, svc, k, 60, func(context.Context) ([]int, bool, error) {
			return []int{1}, true, nil
		}, offers.TrackList())
		require.NoError(t, err)
	}
	svc.Set(ctx, offers.IDKey("o1"), 1, 60)
	svc.Set(ctx, offers.IDKey("o2"), 2, 60)

	offers.InvalidateOnCounter(ctx, "o1")

	for _, k := range keys {
		assert.False(t, mr.Exists(k), k)
	}
	assert.False(t, mr.Exists(offers.IDKey("o1")))
	assert.True(t, mr.Exists(offers.IDKey("o2")))
}

func TestUserCache_UpdateDropsOfferLists(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()
	h := cache.NewHelpers(svc, config.CacheConfig{})

	svc.Set(ctx, h.Users.IDKey("u1"), 1, 60)
	svc.Set(ctx, h.Users.EmailKey("a@b.c"), 1, 60)
	svc.Track(ctx, h.Users.EmailRegistry("u1"), 60, h.Users.EmailKey("a@b.c"))
	svc.Set(ctx, h.Offers.ListKey(60), []int{1}, 60)
	svc.Track(ctx, h.Offers.Registry(), 60, h.Offers.ListKey(60))

	h.Users.InvalidateOnUpdate(ctx, "u1")

	assert.False(t, mr.Exists("users:id:u1"))
	assert.False(t, mr.Exists("users:email:a@b.c"))
	assert.False(t, mr.Exists("offers:list:60"))
}

func TestCommentCache_CreateDropsOfferScopedList(t *testing.T) {
	mr, svc, _ := newTestCache(t)
	ctx := context.Background()
	comments := cache.NewCommentCache(svc, 0)

	svc.Set(ctx, comments.ListKey("o1"), []int{1}, 60)
	svc.Set(ctx, comments.ListKey("o2"), []int{1}, 60)

	comments.InvalidateOnCreate(ctx, "o1")

	assert.False(t, mr.Exists("comments:offer:o1"))
	assert.True(t, mr.Exists("comments:offer:o2"))
}
