package service

import (
	"context"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
	"github.com/turtacn/sixcities/pkg/utils"
)

// OfferService defines the offer and favorites use cases.
// OfferService 房源应用服务接口。
type OfferService interface {
	FindByID(ctx context.Context, id string) (*models.Offer, bool, error)

	// Find lists the newest offers. limit is clamped to 1..MaxOfferListLimit.
	Find(ctx context.Context, limit int) ([]*models.Offer, error)
	FindByCity(ctx context.Context, cityID string, limit int) ([]*models.Offer, error)
	FindPremium(ctx context.Context, cityID string) ([]*models.Offer, error)

	// Create fails with errors.ErrReferential when the city or host does not exist.
	Create(ctx context.Context, req *dto.CreateOfferRequest) (*models.Offer, error)
	UpdateByID(ctx context.Context, id string, req *dto.UpdateOfferRequest) (*models.Offer, bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)

	IncCommentCount(ctx context.Context, id string) error

	FindFavorites(ctx context.Context, userID string) ([]*models.Offer, error)
	AddFavorite(ctx context.Context, userID, offerID string) error
	RemoveFavorite(ctx context.Context, userID, offerID string) (bool, error)
}

type offerServiceImpl struct {
	offers    repository.OfferRepository
	cities    repository.CityRepository
	users     repository.UserRepository
	favorites repository.FavoriteRepository
	cache     *cache.OfferCache
	comments  *cache.CommentCache
	logger    logger.Logger
}

// NewOfferService creates a new OfferService.
func NewOfferService(
	offers repository.OfferRepository,
	cities repository.CityRepository,
	users repository.UserRepository,
	favorites repository.FavoriteRepository,
	offerCache *cache.OfferCache,
	commentCache *cache.CommentCache,
	log logger.Logger,
) OfferService {
	return &offerServiceImpl{
		offers:    offers,
		cities:    cities,
		users:     users,
		favorites: favorites,
		cache:     offerCache,
		comments:  commentCache,
		logger:    log.WithComponent("offer_service"),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultOfferListLimit
	}
	return min(limit, constants.MaxOfferListLimit)
}

func (s *offerServiceImpl) FindByID(ctx context.Context, id string) (*models.Offer, bool, error) {
	return cache.Load(ctx, s.cache.Service(), s.cache.IDKey(id), s.cache.TTL(),
		func(ctx context.Context) (*models.Offer, bool, error) {
			offer, err := s.offers.FindByID(ctx, id)
			if offer != nil {
				s.cache.TrackEmbedded(ctx, offer.ID, offer.CityID, offer.HostID)
			}
			return offer, offer != nil, err
		})
}

func (s *offerServiceImpl) list(ctx context.Context, key string, ttl int, filter models.OfferFilter, opts models.ListOptions) ([]*models.Offer, error) {
	offers, _, err := cache.Load(ctx, s.cache.Service(), key, ttl,
		func(ctx context.Context) ([]*models.Offer, bool, error) {
			offers, err := s.offers.Find(ctx, filter, opts)
			return offers, err == nil, err
		}, s.cache.TrackList())
	return offers, err
}

func (s *offerServiceImpl) Find(ctx context.Context, limit int) ([]*models.Offer, error) {
	limit = clampLimit(limit)
	return s.list(ctx, s.cache.ListKey(limit), s.cache.ListTTL(),
		models.OfferFilter{}, models.ListOptions{Limit: limit})
}

func (s *offerServiceImpl) FindByCity(ctx context.Context, cityID string, limit int) ([]*models.Offer, error) {
	limit = clampLimit(limit)
	return s.list(ctx, s.cache.CityListKey(cityID, limit), s.cache.ListTTL(),
		models.OfferFilter{CityID: cityID}, models.ListOptions{Limit: limit})
}

func (s *offerServiceImpl) FindPremium(ctx context.Context, cityID string) ([]*models.Offer, error) {
	return s.list(ctx, s.cache.PremiumKey(cityID), s.cache.ListTTL(),
		models.OfferFilter{CityID: cityID, PremiumOnly: true},
		models.ListOptions{Limit: constants.MaxPremiumOffers})
}

func (s *offerServiceImpl) Create(ctx context.Context, req *dto.CreateOfferRequest) (*models.Offer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	ok, err := s.cities.Exists(ctx, req.CityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrReferential.WithMessage("city %s does not exist", req.CityID)
	}
	ok, err = s.users.Exists(ctx, req.HostID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrReferential.WithMessage("host %s does not exist", req.HostID)
	}

	offer := req.ToModel()
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}
	s.cache.InvalidateOnCreate(ctx, offer.CityID)
	s.logger.Info(ctx, "Offer created", logger.String("offer_id", offer.ID), logger.String("city_id", offer.CityID))

	created, err := s.offers.FindByID(ctx, offer.ID)
	if err != nil || created == nil {
		return offer, err
	}
	return created, nil
}

func (s *offerServiceImpl) UpdateByID(ctx context.Context, id string, req *dto.UpdateOfferRequest) (*models.Offer, bool, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, err
	}

	offer, err := s.offers.UpdateByID(ctx, id, req.Fields())
	if err != nil || offer == nil {
		return nil, false, err
	}

	s.cache.InvalidateOnUpdate(ctx, id)
	s.logger.Info(ctx, "Offer updated", logger.String("offer_id", id))
	return offer, true, nil
}

func (s *offerServiceImpl) DeleteByID(ctx context.Context, id string) (bool, error) {
	offer, err := s.offers.DeleteByID(ctx, id)
	if err != nil || offer == nil {
		return false, err
	}

	s.cache.InvalidateOnDelete(ctx, id)
	s.comments.InvalidateOnCreate(ctx, id)
	s.logger.Info(ctx, "Offer deleted", logger.String("offer_id", id))
	return true, nil
}

func (s *offerServiceImpl) IncCommentCount(ctx context.Context, id string) error {
	if err := s.offers.IncCommentCount(ctx, id, 1); err != nil {
		return err
	}
	s.cache.InvalidateOnCounter(ctx, id)
	return nil
}

func (s *offerServiceImpl) FindFavorites(ctx context.Context, userID string) ([]*models.Offer, error) {
	offers, _, err := cache.Load(ctx, s.cache.Service(), s.cache.FavoritesKey(userID), s.cache.FavoriteTTL(),
		func(ctx context.Context) ([]*models.Offer, bool, error) {
			ids, err := s.favorites.OfferIDs(ctx, userID)
			if err != nil {
				return nil, false, err
			}
			if len(ids) == 0 {
				return []*models.Offer{}, true, nil
			}
			offers, err := s.offers.Find(ctx, models.OfferFilter{IDs: ids}, models.ListOptions{})
			return offers, err == nil, err
		}, s.cache.TrackList())
	return offers, err
}

func (s *offerServiceImpl) AddFavorite(ctx context.Context, userID, offerID string) error {
	ok, err := s.offers.Exists(ctx, offerID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrReferential.WithMessage("offer %s does not exist", offerID)
	}
	ok, err = s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrReferential.WithMessage("user %s does not exist", userID)
	}

	if err := s.favorites.Add(ctx, userID, offerID); err != nil {
		return err
	}
	s.cache.InvalidateFavorites(ctx, userID)
	return nil
}

func (s *offerServiceImpl) RemoveFavorite(ctx context.Context, userID, offerID string) (bool, error) {
	removed, err := s.favorites.Remove(ctx, userID, offerID)
	if err != nil || !removed {
		return false, err
	}
	s.cache.InvalidateFavorites(ctx, userID)
	return true, nil
}
