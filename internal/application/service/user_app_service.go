package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
	"github.com/turtacn/sixcities/pkg/utils"
)

// UserService defines the user use cases.
// UserService 用户应用服务接口。
type UserService interface {
	FindByID(ctx context.Context, id string) (*models.User, bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Exists(ctx context.Context, id string) (bool, error)

	// Create registers a user; a taken email yields errors.ErrConflict.
	Create(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error)

	UpdateAvatar(ctx context.Context, id string, req *dto.UpdateAvatarRequest) (*models.User, bool, error)

	// Authenticate checks credentials against the stored hash. Unknown emails
	// and wrong passwords both yield errors.ErrUnauthorized.
	Authenticate(ctx context.Context, req *dto.LoginRequest) (*models.User, error)
}

type userServiceImpl struct {
	repo   repository.UserRepository
	users  *cache.UserCache
	logger logger.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.UserRepository, users *cache.UserCache, log logger.Logger) UserService {
	return &userServiceImpl{repo: repo, users: users, logger: log.WithComponent("user_service")}
}

func (s *userServiceImpl) FindByID(ctx context.Context, id string) (*models.User, bool, error) {
	return cache.Load(ctx, s.users.Service(), s.users.IDKey(id), s.users.TTL(),
		func(ctx context.Context) (*models.User, bool, error) {
			user, err := s.repo.FindByID(ctx, id)
			return user, user != nil, err
		})
}

func (s *userServiceImpl) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	key := s.users.EmailKey(email)
	return cache.Load(ctx, s.users.Service(), key, s.users.TTL(),
		func(ctx context.Context) (*models.User, bool, error) {
			user, err := s.repo.FindByEmail(ctx, email)
			if err != nil || user == nil {
				return nil, false, err
			}
			s.users.Service().Track(ctx, s.users.EmailRegistry(user.ID), s.users.TTL(), key)
			return user, true, nil
		})
}

func (s *userServiceImpl) Exists(ctx context.Context, id string) (bool, error) {
	if s.users.Service().Exists(ctx, s.users.IDKey(id)) {
		return true, nil
	}
	return s.repo.Exists(ctx, id)
}

func (s *userServiceImpl) Create(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrConflict.WithMessage("user with email %q already exists", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		AvatarURL:    req.AvatarURL,
		Type:         models.UserType(req.Type),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "User created", logger.String("user_id", user.ID))
	return user, nil
}

func (s *userServiceImpl) UpdateAvatar(ctx context.Context, id string, req *dto.UpdateAvatarRequest) (*models.User, bool, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, err
	}

	user, err := s.repo.UpdateByID(ctx, id, map[string]any{"avatar_url": req.AvatarURL})
	if err != nil || user == nil {
		return nil, false, err
	}

	s.users.InvalidateOnUpdate(ctx, id)
	return user, true, nil
}

// Authenticate reads the user from the repository: cached users carry no hash.
func (s *userServiceImpl) Authenticate(ctx context.Context, req *dto.LoginRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.ErrUnauthorized.WithMessage("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug(ctx, "Password mismatch", logger.String("user_id", user.ID))
		return nil, errors.ErrUnauthorized.WithMessage("invalid email or password")
	}
	return user, nil
}
