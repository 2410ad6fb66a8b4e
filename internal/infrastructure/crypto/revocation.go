package crypto

import (
	"context"
	"time"

	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/logger"
)

// Revocations records tokens signed out before they expire.
// Entries live in the shared store only as long as the token would have.
type Revocations struct {
	store redis.Store
	now   func() time.Time
	log   logger.Logger
}

// NewRevocations creates a revocation list over store.
func NewRevocations(store redis.Store, log logger.Logger) *Revocations {
	if store == nil {
		store = redis.NoopStore{}
	}
	return &Revocations{store: store, now: time.Now, log: log.WithComponent("token_revocations")}
}

func revokedKey(jti string) string {
	return constants.KeyPrefixRevokedTokens + constants.KeySeparator + jti
}

// Revoke marks the token identified by claims as signed out.
// Tokens without an id or already expired need no entry.
func (r *Revocations) Revoke(ctx context.Context, claims *Claims) error {
	if r == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.store.Set(ctx, revokedKey(claims.ID), []byte("1"), ttl); err != nil {
		r.log.Warn(ctx, "Failed to record token revocation",
			logger.String("subject", claims.Subject),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// IsRevoked reports whether jti was signed out. While the store is
// unavailable every token is treated as live.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) bool {
	if r == nil || jti == "" || !r.store.IsAvailable() {
		return false
	}
	ok, err := r.store.Exists(ctx, revokedKey(jti))
	if err != nil {
		r.log.Debug(ctx, "Revocation lookup failed", logger.Error(err))
		return false
	}
	return ok
}
