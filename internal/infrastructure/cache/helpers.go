package cache

import (
	"context"
	"strconv"
	"strings"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/pkg/constants"
)

// ================================================================================
// Cities
// ================================================================================

// CityCache owns the cities:* keys.
type CityCache struct {
	svc *Service
	ttl int
}

func NewCityCache(svc *Service, ttlSeconds int) *CityCache {
	return &CityCache{svc: svc, ttl: orDefault(ttlSeconds, constants.DefaultCityTTLSeconds)}
}

func (c *CityCache) Service() *Service { return c.svc }
func (c *CityCache) TTL() int          { return c.ttl }

func (c *CityCache) ListKey() string {
	return GenerateKey(constants.KeyPrefixCities, "list")
}

func (c *CityCache) IDKey(id string) string {
	return GenerateKey(constants.KeyPrefixCities, "id", id)
}

// NameKey is case-insensitive: "Paris" and "paris " share one entry.
func (c *CityCache) NameKey(name string) string {
	return GenerateKey(constants.KeyPrefixCities, "name", normalizeName(name))
}

// NameRegistry tracks every name key that was populated for city id, so a
// rename drops the entry under the old name too.
func (c *CityCache) NameRegistry(id string) string {
	return GenerateKey(constants.KeyPrefixCities, "names", id)
}

func (c *CityCache) InvalidateOnCreate(ctx context.Context) {
	c.svc.Delete(ctx, c.ListKey())
}

func (c *CityCache) InvalidateOnUpdate(ctx context.Context, id string) {
	c.svc.DeleteTracked(ctx, c.NameRegistry(id))
	c.svc.Delete(ctx, c.IDKey(id), c.ListKey())
}

func (c *CityCache) InvalidateOnDelete(ctx context.Context, id string) {
	c.InvalidateOnUpdate(ctx, id)
}

// ================================================================================
// Users
// ================================================================================

// UserCache owns the users:* keys. Offers embed their host, so user
// mutations also drop cached offer lists.
type UserCache struct {
	svc    *Service
	ttl    int
	offers *OfferCache
}

func NewUserCache(svc *Service, ttlSeconds int, offers *OfferCache) *UserCache {
	return &UserCache{svc: svc, ttl: orDefault(ttlSeconds, constants.DefaultUserTTLSeconds), offers: offers}
}

func (c *UserCache) Service() *Service { return c.svc }
func (c *UserCache) TTL() int          { return c.ttl }

func (c *UserCache) IDKey(id string) string {
	return GenerateKey(constants.KeyPrefixUsers, "id", id)
}

func (c *UserCache) EmailKey(email string) string {
	return GenerateKey(constants.KeyPrefixUsers, "email", normalizeName(email))
}

// EmailRegistry tracks the email keys populated for user id.
func (c *UserCache) EmailRegistry(id string) string {
	return GenerateKey(constants.KeyPrefixUsers, "emails", id)
}

func (c *UserCache) InvalidateOnUpdate(ctx context.Context, id string) {
	c.svc.DeleteTracked(ctx, c.EmailRegistry(id))
	c.svc.Delete(ctx, c.IDKey(id))
	if c.offers != nil {
		c.offers.InvalidateHost(ctx, id)
	}
}

// ================================================================================
// Offers and favorites
// ================================================================================

// OfferCache owns the offers:* and favorites:* keys. List keys are
// parameterized by limit, so every populated list key is recorded in a
// registry set and invalidation deletes all of them at once.
type OfferCache struct {
	svc         *Service
	ttl         int
	listTTL     int
	favoriteTTL int
}

func NewOfferCache(svc *Service, ttlSeconds, listTTLSeconds, favoriteTTLSeconds int) *OfferCache {
	return &OfferCache{
		svc:         svc,
		ttl:         orDefault(ttlSeconds, constants.DefaultOfferTTLSeconds),
		listTTL:     orDefault(listTTLSeconds, constants.DefaultOfferListTTLSeconds),
		favoriteTTL: orDefault(favoriteTTLSeconds, constants.DefaultFavoriteTTLSeconds),
	}
}

func (c *OfferCache) Service() *Service { return c.svc }
func (c *OfferCache) TTL() int          { return c.ttl }
func (c *OfferCache) ListTTL() int      { return c.listTTL }
func (c *OfferCache) FavoriteTTL() int  { return c.favoriteTTL }

func (c *OfferCache) IDKey(id string) string {
	return GenerateKey(constants.KeyPrefixOffers, "id", id)
}

func (c *OfferCache) ListKey(limit int) string {
	return GenerateKey(constants.KeyPrefixOffers, "list", strconv.Itoa(limit))
}

func (c *OfferCache) CityListKey(cityID string, limit int) string {
	return GenerateKey(constants.KeyPrefixOffers, "city", cityID, strconv.Itoa(limit))
}

func (c *OfferCache) PremiumKey(cityID string) string {
	return GenerateKey(constants.KeyPrefixOffers, "premium", cityID)
}

func (c *OfferCache) FavoritesKey(userID string) string {
	return GenerateKey(constants.KeyPrefixFavorites, "user", userID)
}

// Registry is the set of every list key currently cached.
func (c *OfferCache) Registry() string {
	return GenerateKey(constants.KeyPrefixOffers, "registry")
}

// CityRegistry and HostRegistry track the offer entries that embed city or
// host id, so an update to either drops them.
func (c *OfferCache) CityRegistry(cityID string) string {
	return GenerateKey(constants.KeyPrefixOffers, "by-city", cityID)
}

func (c *OfferCache) HostRegistry(hostID string) string {
	return GenerateKey(constants.KeyPrefixOffers, "by-host", hostID)
}

// TrackEmbedded records the offer entry for id under its city and host.
func (c *OfferCache) TrackEmbedded(ctx context.Context, id, cityID, hostID string) {
	key := c.IDKey(id)
	if cityID != "" {
		c.svc.Track(ctx, c.CityRegistry(cityID), c.ttl, key)
	}
	if hostID != "" {
		c.svc.Track(ctx, c.HostRegistry(hostID), c.ttl, key)
	}
}

// InvalidateCity drops every cached offer embedding city cityID.
func (c *OfferCache) InvalidateCity(ctx context.Context, cityID string) {
	c.svc.DeleteTracked(ctx, c.CityRegistry(cityID))
	c.InvalidateLists(ctx)
}

// InvalidateHost drops every cached offer embedding user hostID.
func (c *OfferCache) InvalidateHost(ctx context.Context, hostID string) {
	c.svc.DeleteTracked(ctx, c.HostRegistry(hostID))
	c.InvalidateLists(ctx)
}

// TrackList is the Load option that records a list key in the registry.
func (c *OfferCache) TrackList() LoadOption {
	return TrackIn(c.Registry(), max(c.listTTL, c.favoriteTTL))
}

// InvalidateLists drops every cached offer and favorites list.
func (c *OfferCache) InvalidateLists(ctx context.Context) {
	c.svc.DeleteTracked(ctx, c.Registry())
}

func (c *OfferCache) InvalidateOnCreate(ctx context.Context, cityID string) {
	// City lists, the premium list and the global list are all tracked.
	c.InvalidateLists(ctx)
}

func (c *OfferCache) InvalidateOnUpdate(ctx context.Context, id string) {
	c.svc.Delete(ctx, c.IDKey(id))
	c.InvalidateLists(ctx)
}

func (c *OfferCache) InvalidateOnDelete(ctx context.Context, id string) {
	c.InvalidateOnUpdate(ctx, id)
}

// InvalidateOnCounter handles comment count and rating changes; lists may be
// sorted by either.
func (c *OfferCache) InvalidateOnCounter(ctx context.Context, id string) {
	c.InvalidateOnUpdate(ctx, id)
}

func (c *OfferCache) InvalidateFavorites(ctx context.Context, userID string) {
	c.svc.Delete(ctx, c.FavoritesKey(userID))
}

// ================================================================================
// Comments
// ================================================================================

// CommentCache owns the comments:* keys.
type CommentCache struct {
	svc *Service
	ttl int
}

func NewCommentCache(svc *Service, ttlSeconds int) *CommentCache {
	return &CommentCache{svc: svc, ttl: orDefault(ttlSeconds, constants.DefaultCommentTTLSeconds)}
}

func (c *CommentCache) Service() *Service { return c.svc }
func (c *CommentCache) TTL() int          { return c.ttl }

func (c *CommentCache) ListKey(offerID string) string {
	return GenerateKey(constants.KeyPrefixComments, "offer", offerID)
}

func (c *CommentCache) InvalidateOnCreate(ctx context.Context, offerID string) {
	c.svc.Delete(ctx, c.ListKey(offerID))
}

// ================================================================================
// Wiring
// ================================================================================

// Helpers bundles the per-entity caches built from one Service.
type Helpers struct {
	Cities   *CityCache
	Users    *UserCache
	Offers   *OfferCache
	Comments *CommentCache
}

// NewHelpers builds all helpers with TTLs from cfg.
func NewHelpers(svc *Service, cfg config.CacheConfig) *Helpers {
	offers := NewOfferCache(svc, cfg.OfferTTL, cfg.OfferListTTL, cfg.FavoriteTTL)
	return &Helpers{
		Cities:   NewCityCache(svc, cfg.CityTTL),
		Users:    NewUserCache(svc, cfg.UserTTL, offers),
		Offers:   offers,
		Comments: NewCommentCache(svc, cfg.CommentTTL),
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
