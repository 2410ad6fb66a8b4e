package redis

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/sixcities/pkg/errors"
)

// ErrKeyNotFound is returned by Get for an absent key.
var ErrKeyNotFound = errors.New(errors.CodeNotFound, http.StatusNotFound, "store key not found")

// Store is the narrow capability set the cache and the rate limiter need from
// the shared key-value store. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the raw value or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value; a zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Flush removes every key in the selected database.
	Flush(ctx context.Context) error

	// IncrWithExpiry atomically increments key and, when the key is new (or
	// has lost its expiry), sets it to expire after window. It returns the
	// post-increment count and the time left until the key expires.
	IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	// AddToSet adds members to the set at key and refreshes its expiry.
	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error

	// SetMembers lists the members of the set at key.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// IsAvailable reports the liveness flag of the backing connection.
	IsAvailable() bool
}
