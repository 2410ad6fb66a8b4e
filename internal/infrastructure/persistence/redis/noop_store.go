package redis

import (
	"context"
	"time"

	"github.com/turtacn/sixcities/pkg/errors"
)

var _ Store = NoopStore{}

// NoopStore is a Store that is never available. Every operation fails with
// errors.ErrStoreUnavailable; it stands in for an unreachable server.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.ErrStoreUnavailable
}

func (NoopStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.ErrStoreUnavailable
}

func (NoopStore) Delete(context.Context, ...string) error {
	return errors.ErrStoreUnavailable
}

func (NoopStore) Exists(context.Context, string) (bool, error) {
	return false, errors.ErrStoreUnavailable
}

func (NoopStore) Flush(context.Context) error {
	return errors.ErrStoreUnavailable
}

func (NoopStore) IncrWithExpiry(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.ErrStoreUnavailable
}

func (NoopStore) AddToSet(context.Context, string, time.Duration, ...string) error {
	return errors.ErrStoreUnavailable
}

func (NoopStore) SetMembers(context.Context, string) ([]string, error) {
	return nil, errors.ErrStoreUnavailable
}

func (NoopStore) IsAvailable() bool { return false }
