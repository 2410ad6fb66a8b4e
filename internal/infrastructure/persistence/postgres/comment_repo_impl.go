package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/pkg/logger"
)

// CommentRepoImpl implements CommentRepository using gorm.
type CommentRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewCommentRepository creates a new gorm-based comment repository.
func NewCommentRepository(db *gorm.DB, log logger.Logger) repository.CommentRepository {
	return &CommentRepoImpl{db: db, logger: log.WithComponent("comment_repo")}
}

func (r *CommentRepoImpl) FindByOffer(ctx context.Context, offerID string, limit int) ([]*models.Comment, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("offer_id = ?", offerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var comments []*models.Comment
	if err := q.Find(&comments).Error; err != nil {
		r.logger.Error(ctx, "Failed to list comments", err, logger.String("offer_id", offerID))
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepoImpl) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		r.logger.Error(ctx, "Failed to create comment", err, logger.String("offer_id", comment.OfferID))
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *CommentRepoImpl) AverageRating(ctx context.Context, offerID string) (float64, int64, error) {
	var row struct {
		Avg   float64
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS total").
		Where("offer_id = ?", offerID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate rating: %w", err)
	}
	return row.Avg, row.Total, nil
}

// FavoriteRepoImpl implements FavoriteRepository using gorm.
type FavoriteRepoImpl struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new gorm-based favorite repository.
func NewFavoriteRepository(db *gorm.DB) repository.FavoriteRepository {
	return &FavoriteRepoImpl{db: db}
}

func (r *FavoriteRepoImpl) Add(ctx context.Context, userID, offerID string) error {
	fav := &models.Favorite{UserID: userID, OfferID: offerID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepoImpl) Remove(ctx context.Context, userID, offerID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND offer_id = ?", userID, offerID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, fmt.Errorf("remove favorite: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *FavoriteRepoImpl) OfferIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("offer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return ids, nil
}
