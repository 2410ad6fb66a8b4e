// Package service holds the domain services: cache-aside reads and
// write-then-invalidate mutations over the repositories.
package service

import (
	"context"
	"strings"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
	"github.com/turtacn/sixcities/pkg/utils"
)

// CityService defines the city use cases.
// CityService 城市应用服务接口。
type CityService interface {
	// FindByID returns the city, or found=false when it does not exist.
	FindByID(ctx context.Context, id string) (*models.City, bool, error)

	// FindByName looks a city up by case-insensitive name.
	FindByName(ctx context.Context, name string) (*models.City, bool, error)

	// Find lists every city ordered by name.
	Find(ctx context.Context) ([]*models.City, error)

	Exists(ctx context.Context, id string) (bool, error)

	// Create fails with errors.ErrConflict when the name is taken.
	Create(ctx context.Context, req *dto.CreateCityRequest) (*models.City, error)

	// UpdateByID reports found=false, and invalidates nothing, for an unknown id.
	UpdateByID(ctx context.Context, id string, req *dto.UpdateCityRequest) (*models.City, bool, error)

	DeleteByID(ctx context.Context, id string) (bool, error)
}

type cityServiceImpl struct {
	repo   repository.CityRepository
	cities *cache.CityCache
	offers *cache.OfferCache
	logger logger.Logger
}

// NewCityService creates a new CityService.
// NewCityService 创建城市应用服务实例。
func NewCityService(repo repository.CityRepository, cities *cache.CityCache, offers *cache.OfferCache, log logger.Logger) CityService {
	return &cityServiceImpl{
		repo:   repo,
		cities: cities,
		offers: offers,
		logger: log.WithComponent("city_service"),
	}
}

func (s *cityServiceImpl) FindByID(ctx context.Context, id string) (*models.City, bool, error) {
	return cache.Load(ctx, s.cities.Service(), s.cities.IDKey(id), s.cities.TTL(),
		func(ctx context.Context) (*models.City, bool, error) {
			city, err := s.repo.FindByID(ctx, id)
			return city, city != nil, err
		})
}

// FindByName matches case-insensitively and ignores surrounding blanks, for
// the cache key and the query alike.
func (s *cityServiceImpl) FindByName(ctx context.Context, name string) (*models.City, bool, error) {
	name = strings.TrimSpace(name)
	key := s.cities.NameKey(name)
	return cache.Load(ctx, s.cities.Service(), key, s.cities.TTL(),
		func(ctx context.Context) (*models.City, bool, error) {
			city, err := s.repo.FindByName(ctx, name)
			if err != nil || city == nil {
				return nil, false, err
			}
			s.cities.Service().Track(ctx, s.cities.NameRegistry(city.ID), s.cities.TTL(), key)
			return city, true, nil
		})
}

func (s *cityServiceImpl) Find(ctx context.Context) ([]*models.City, error) {
	cities, _, err := cache.Load(ctx, s.cities.Service(), s.cities.ListKey(), s.cities.TTL(),
		func(ctx context.Context) ([]*models.City, bool, error) {
			cities, err := s.repo.Find(ctx, models.ListOptions{})
			return cities, err == nil, err
		})
	return cities, err
}

func (s *cityServiceImpl) Exists(ctx context.Context, id string) (bool, error) {
	if s.cities.Service().Exists(ctx, s.cities.IDKey(id)) {
		return true, nil
	}
	return s.repo.Exists(ctx, id)
}

func (s *cityServiceImpl) Create(ctx context.Context, req *dto.CreateCityRequest) (*models.City, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrConflict.WithMessage("city %q already exists", req.Name)
	}

	city := &models.City{Name: req.Name, Latitude: req.Latitude, Longitude: req.Longitude}
	if err := s.repo.Create(ctx, city); err != nil {
		return nil, err
	}

	s.cities.InvalidateOnCreate(ctx)
	s.logger.Info(ctx, "City created", logger.String("city_id", city.ID), logger.String("name", city.Name))
	return city, nil
}

func (s *cityServiceImpl) UpdateByID(ctx context.Context, id string, req *dto.UpdateCityRequest) (*models.City, bool, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, err
	}

	city, err := s.repo.UpdateByID(ctx, id, req.Fields())
	if err != nil || city == nil {
		return nil, false, err
	}

	s.cities.InvalidateOnUpdate(ctx, id)
	// Offers embed their city.
	s.offers.InvalidateCity(ctx, id)
	s.logger.Info(ctx, "City updated", logger.String("city_id", id))
	return city, true, nil
}

func (s *cityServiceImpl) DeleteByID(ctx context.Context, id string) (bool, error) {
	city, err := s.repo.DeleteByID(ctx, id)
	if err != nil || city == nil {
		return false, err
	}

	s.cities.InvalidateOnDelete(ctx, id)
	s.offers.InvalidateCity(ctx, id)
	s.logger.Info(ctx, "City deleted", logger.String("city_id", id))
	return true, nil
}
