// Package mocks provides testify mocks for the application services.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/domain/models"
)

var (
	_ service.CityService    = (*MockCityService)(nil)
	_ service.UserService    = (*MockUserService)(nil)
	_ service.OfferService   = (*MockOfferService)(nil)
	_ service.CommentService = (*MockCommentService)(nil)
)

// MockCityService is a mock implementation of service.CityService.
type MockCityService struct {
	mock.Mock
}

func (m *MockCityService) FindByID(ctx context.Context, id string) (*models.City, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.City), args.Bool(1), args.Error(2)
}

func (m *MockCityService) FindByName(ctx context.Context, name string) (*models.City, bool, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.City), args.Bool(1), args.Error(2)
}

func (m *MockCityService) Find(ctx context.Context) ([]*models.City, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.City), args.Error(1)
}

func (m *MockCityService) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCityService) Create(ctx context.Context, req *dto.CreateCityRequest) (*models.City, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.City), args.Error(1)
}

func (m *MockCityService) UpdateByID(ctx context.Context, id string, req *dto.UpdateCityRequest) (*models.City, bool, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.City), args.Bool(1), args.Error(2)
}

func (m *MockCityService) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindByID(ctx context.Context, id string) (*models.User, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateAvatar(ctx context.Context, id string, req *dto.UpdateAvatarRequest) (*models.User, bool, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) Authenticate(ctx context.Context, req *dto.LoginRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockOfferService is a mock implementation of service.OfferService.
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) FindByID(ctx context.Context, id string) (*models.Offer, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.Offer), args.Bool(1), args.Error(2)
}

func (m *MockOfferService) Find(ctx context.Context, limit int) ([]*models.Offer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Offer), args.Error(1)
}

func (m *MockOfferService) FindByCity(ctx context.Context, cityID string, limit int) ([]*models.Offer, error) {
	args := m.Called(ctx, cityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Offer), args.Error(1)
}

func (m *MockOfferService) FindPremium(ctx context.Context, cityID string) ([]*models.Offer, error) {
	args := m.Called(ctx, cityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Offer), args.Error(1)
}

func (m *MockOfferService) Create(ctx context.Context, req *dto.CreateOfferRequest) (*models.Offer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) UpdateByID(ctx context.Context, id string, req *dto.UpdateOfferRequest) (*models.Offer, bool, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.Offer), args.Bool(1), args.Error(2)
}

func (m *MockOfferService) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferService) IncCommentCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferService) FindFavorites(ctx context.Context, userID string) ([]*models.Offer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Offer), args.Error(1)
}

func (m *MockOfferService) AddFavorite(ctx context.Context, userID string, offerID string) error {
	args := m.Called(ctx, userID, offerID)
	return args.Error(0)
}

func (m *MockOfferService) RemoveFavorite(ctx context.Context, userID string, offerID string) (bool, error) {
	args := m.Called(ctx, userID, offerID)
	return args.Bool(0), args.Error(1)
}

// MockCommentService is a mock implementation of service.CommentService.
type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) FindByOffer(ctx context.Context, offerID string) ([]*models.Comment, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentService) Create(ctx context.Context, req *dto.CreateCommentRequest) (*models.Comment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}
