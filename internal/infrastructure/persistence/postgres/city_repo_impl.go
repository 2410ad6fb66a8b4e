package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// CityRepoImpl implements CityRepository using gorm.
type CityRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewCityRepository creates a new gorm-based city repository.
func NewCityRepository(db *gorm.DB, log logger.Logger) repository.CityRepository {
	return &CityRepoImpl{db: db, logger: log.WithComponent("city_repo")}
}

func (r *CityRepoImpl) Exists(ctx context.Context, id string) (bool, error) {
	return exists[models.City](ctx, r.db, id)
}

func (r *CityRepoImpl) FindByID(ctx context.Context, id string) (*models.City, error) {
	return first[models.City](ctx, r.db, "id = ?", id)
}

func (r *CityRepoImpl) FindByName(ctx context.Context, name string) (*models.City, error) {
	return first[models.City](ctx, r.db, "LOWER(name) = LOWER(?)", name)
}

func (r *CityRepoImpl) Find(ctx context.Context, opts models.ListOptions) ([]*models.City, error) {
	var cities []*models.City
	q := r.db.WithContext(ctx).Order("name ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&cities).Error; err != nil {
		r.logger.Error(ctx, "Failed to list cities", err)
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

func (r *CityRepoImpl) Create(ctx context.Context, city *models.City) error {
	if city.ID == "" {
		city.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(city).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrConflict.WithMessage("city %q already exists", city.Name)
		}
		r.logger.Error(ctx, "Failed to create city", err, logger.String("name", city.Name))
		return fmt.Errorf("create city: %w", err)
	}
	return nil
}

func (r *CityRepoImpl) UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.City, error) {
	city, err := updateByID[models.City](ctx, r.db, id, fields)
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errors.ErrConflict.WithMessage("city name already exists")
	}
	return city, err
}

func (r *CityRepoImpl) DeleteByID(ctx context.Context, id string) (*models.City, error) {
	var deleted *models.City
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		city, err := first[models.City](ctx, tx, "id = ?", id)
		if err != nil || city == nil {
			return err
		}
		if err := tx.Delete(&models.City{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = city
		return nil
	})
	if stderrors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, errors.ErrConflict.WithMessage("city %s still has offers", id)
	}
	if err != nil {
		r.logger.Error(ctx, "Failed to delete city", err, logger.String("city_id", id))
		return nil, fmt.Errorf("delete city: %w", err)
	}
	return deleted, nil
}
