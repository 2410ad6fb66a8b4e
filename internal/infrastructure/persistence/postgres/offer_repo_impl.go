package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/pkg/logger"
)

var offerSortColumns = map[string]string{
	"":              "created_at",
	"created_at":    "created_at",
	"price":         "price",
	"rating":        "rating",
	"comment_count": "comment_count",
}

// OfferRepoImpl implements OfferRepository using gorm.
type OfferRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewOfferRepository creates a new gorm-based offer repository.
func NewOfferRepository(db *gorm.DB, log logger.Logger) repository.OfferRepository {
	return &OfferRepoImpl{db: db, logger: log.WithComponent("offer_repo")}
}

func (r *OfferRepoImpl) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("City").Preload("Host")
}

func (r *OfferRepoImpl) Exists(ctx context.Context, id string) (bool, error) {
	return exists[models.Offer](ctx, r.db, id)
}

func (r *OfferRepoImpl) FindByID(ctx context.Context, id string) (*models.Offer, error) {
	return first[models.Offer](ctx, r.withRelations(ctx), "id = ?", id)
}

func (r *OfferRepoImpl) Find(ctx context.Context, filter models.OfferFilter, opts models.ListOptions) ([]*models.Offer, error) {
	column, ok := offerSortColumns[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("unsupported sort column %q", opts.SortBy)
	}
	order := column + " DESC"
	if opts.SortBy != "" && !opts.Desc {
		order = column + " ASC"
	}

	q := r.withRelations(ctx).Order(order)
	if filter.CityID != "" {
		q = q.Where("city_id = ?", filter.CityID)
	}
	if filter.PremiumOnly {
		q = q.Where("is_premium = ?", true)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []*models.Offer{}, nil
		}
		q = q.Where("id IN ?", filter.IDs)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var offers []*models.Offer
	if err := q.Find(&offers).Error; err != nil {
		r.logger.Error(ctx, "Failed to list offers", err)
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

func (r *OfferRepoImpl) Create(ctx context.Context, offer *models.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit("City", "Host").Create(offer).Error; err != nil {
		r.logger.Error(ctx, "Failed to create offer", err, logger.String("title", offer.Title))
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}

func (r *OfferRepoImpl) UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.Offer, error) {
	updated, err := updateByID[models.Offer](ctx, r.db, id, fields)
	if err != nil {
		r.logger.Error(ctx, "Failed to update offer", err, logger.String("offer_id", id))
		return nil, fmt.Errorf("update offer: %w", err)
	}
	if updated == nil {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *OfferRepoImpl) DeleteByID(ctx context.Context, id string) (*models.Offer, error) {
	var deleted *models.Offer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offer, err := first[models.Offer](ctx, tx, "id = ?", id)
		if err != nil || offer == nil {
			return err
		}
		if err := tx.Where("offer_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("offer_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Offer{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = offer
		return nil
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to delete offer", err, logger.String("offer_id", id))
		return nil, fmt.Errorf("delete offer: %w", err)
	}
	return deleted, nil
}

func (r *OfferRepoImpl) IncCommentCount(ctx context.Context, id string, delta int) error {
	err := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}
	return nil
}

func (r *OfferRepoImpl) SetRating(ctx context.Context, id string, rating float64) error {
	err := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ?", id).
		UpdateColumn("rating", rating).Error
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return nil
}
