package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// UserRepoImpl implements UserRepository using gorm.
type UserRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserRepository creates a new gorm-based user repository.
func NewUserRepository(db *gorm.DB, log logger.Logger) repository.UserRepository {
	return &UserRepoImpl{db: db, logger: log.WithComponent("user_repo")}
}

func (r *UserRepoImpl) Exists(ctx context.Context, id string) (bool, error) {
	return exists[models.User](ctx, r.db, id)
}

func (r *UserRepoImpl) FindByID(ctx context.Context, id string) (*models.User, error) {
	return first[models.User](ctx, r.db, "id = ?", id)
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (r *UserRepoImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](ctx, r.db, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepoImpl) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Type == "" {
		user.Type = models.UserTypeRegular
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrConflict.WithMessage("user with email %q already exists", user.Email)
		}
		r.logger.Error(ctx, "Failed to create user", err)
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepoImpl) UpdateByID(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	user, err := updateByID[models.User](ctx, r.db, id, fields)
	if err != nil {
		r.logger.Error(ctx, "Failed to update user", err, logger.String("user_id", id))
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
