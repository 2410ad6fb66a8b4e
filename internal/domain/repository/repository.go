// Package repository declares the system of record contracts the domain
// services depend on.
//
// Lookups return (nil, nil) when the entity does not exist; an error always
// means the system of record itself failed. UpdateByID and DeleteByID return
// the affected entity, or nil when there was nothing to update or delete.
package repository

import (
	"context"

	"github.com/turtacn/sixcities/internal/domain/models"
)

// CityRepository defines the interface for interacting with city storage.
type CityRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.City, error)
	FindByName(ctx context.Context, name string) (*models.City, error)
	Find(ctx context.Context, opts models.ListOptions) ([]*models.City, error)

	// Create persists city. A duplicate name yields errors.ErrConflict.
	Create(ctx context.Context, city *models.City) error

	UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.City, error)
	DeleteByID(ctx context.Context, id string) (*models.City, error)
}

// UserRepository defines the interface for interacting with user storage.
type UserRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Create persists user. A duplicate email yields errors.ErrConflict.
	Create(ctx context.Context, user *models.User) error

	UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.User, error)
}

// OfferRepository defines the interface for interacting with offer storage.
// Returned offers have City and Host populated.
type OfferRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Offer, error)
	Find(ctx context.Context, filter models.OfferFilter, opts models.ListOptions) ([]*models.Offer, error)
	Create(ctx context.Context, offer *models.Offer) error
	UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.Offer, error)

	// DeleteByID removes the offer together with its comments and favorites.
	DeleteByID(ctx context.Context, id string) (*models.Offer, error)

	// IncCommentCount atomically adds delta to the derived comment counter.
	IncCommentCount(ctx context.Context, id string, delta int) error

	// SetRating stores the derived average rating.
	SetRating(ctx context.Context, id string, rating float64) error
}

// CommentRepository defines the interface for interacting with comment storage.
type CommentRepository interface {
	// FindByOffer returns the latest comments first, author populated.
	FindByOffer(ctx context.Context, offerID string, limit int) ([]*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error

	// AverageRating aggregates the ratings of every comment on offerID.
	AverageRating(ctx context.Context, offerID string) (avg float64, count int64, err error)
}

// FavoriteRepository defines the interface for interacting with favorite storage.
type FavoriteRepository interface {
	// Add is idempotent.
	Add(ctx context.Context, userID, offerID string) error
	// Remove reports whether a favorite was removed.
	Remove(ctx context.Context, userID, offerID string) (bool, error)
	OfferIDs(ctx context.Context, userID string) ([]string, error)
}
