// Package constants defines system-wide constants for the six cities backend.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Rate Limit Tier Constants
// ================================================================================

// RateLimitTier is a rate-limit classification bucket with its own budget and window.
type RateLimitTier string

const (
	// TierAuth covers sign-in, sign-up and logout endpoints
	TierAuth RateLimitTier = "auth"

	// TierUpload covers avatar, preview, image and upload endpoints
	TierUpload RateLimitTier = "upload"

	// TierUserAPI covers favorites, comments and mutating offer/user endpoints
	TierUserAPI RateLimitTier = "user_api"

	// TierPublic covers everything else
	TierPublic RateLimitTier = "public"
)

// RateLimitTiers lists tiers in classification priority order (first match wins).
var RateLimitTiers = []RateLimitTier{TierAuth, TierUpload, TierUserAPI, TierPublic}

// ================================================================================
// Rate Limit Defaults
// ================================================================================

const (
	// DefaultRateLimitWindow is the window shared by all tiers unless overridden
	DefaultRateLimitWindow = time.Minute

	// DefaultPublicLimit is the request budget per window for public endpoints
	DefaultPublicLimit = 100

	// DefaultAuthLimit is the request budget per window for auth endpoints
	DefaultAuthLimit = 5

	// DefaultUploadLimit is the request budget per window for upload endpoints
	DefaultUploadLimit = 10

	// DefaultUserAPILimit is the request budget per window for user API endpoints
	DefaultUserAPILimit = 30

	// DefaultStoreTimeout bounds every shared store round trip
	DefaultStoreTimeout = 250 * time.Millisecond

	// DefaultHealthInterval is the liveness probe period for the shared store
	DefaultHealthInterval = 2 * time.Second

	// DefaultIPv6Prefix is the prefix length IPv6 clients are grouped by
	DefaultIPv6Prefix = 64
)

// ================================================================================
// Cache TTL Defaults (seconds)
// ================================================================================

const (
	DefaultCityTTLSeconds      = 3600
	DefaultUserTTLSeconds      = 1800
	DefaultOfferTTLSeconds     = 600
	DefaultOfferListTTLSeconds = 300
	DefaultCommentTTLSeconds   = 300
	DefaultFavoriteTTLSeconds  = 300
)

// ================================================================================
// Store Key Prefixes
// ================================================================================

const (
	// KeyPrefixRateLimit namespaces rate-limit windows
	KeyPrefixRateLimit = "ratelimit"

	KeyPrefixCities    = "cities"
	KeyPrefixUsers     = "users"
	KeyPrefixOffers    = "offers"
	KeyPrefixComments  = "comments"
	KeyPrefixFavorites = "favorites"

	// KeyPrefixRevokedTokens holds the ids of tokens signed out before expiry
	KeyPrefixRevokedTokens = "auth:revoked"

	// KeySeparator joins key parts
	KeySeparator = ":"
)

// ================================================================================
// Domain Limits
// ================================================================================

const (
	// DefaultOfferListLimit is the page size used when a caller does not ask for one
	DefaultOfferListLimit = 60

	// MaxOfferListLimit caps list queries
	MaxOfferListLimit = 200

	// MaxPremiumOffers is the size of the premium list for a city
	MaxPremiumOffers = 3

	// MaxCommentsPerOffer is the number of latest comments returned for an offer
	MaxCommentsPerOffer = 50
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRequestID stores the request ID
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyPrincipal stores the authenticated user id
	ContextKeyPrincipal ContextKey = "principal"

	// ContextKeyTokenClaims stores the verified bearer token claims
	ContextKeyTokenClaims ContextKey = "token_claims"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	HeaderRequestID          = "X-Request-ID"
	HeaderAuthorization      = "Authorization"
	HeaderForwardedFor       = "X-Forwarded-For"
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// ================================================================================
// Log Level Constants
// ================================================================================

// LogLevel represents logging severity
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
