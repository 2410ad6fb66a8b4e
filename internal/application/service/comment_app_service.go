package service

import (
	"context"
	"math"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
	"github.com/turtacn/sixcities/pkg/utils"
)

// CommentService defines the comment use cases.
// CommentService 评论应用服务接口。
type CommentService interface {
	// FindByOffer returns the latest comments of an offer, newest first.
	FindByOffer(ctx context.Context, offerID string) ([]*models.Comment, error)

	// Create stores the comment and refreshes the offer's derived counters.
	Create(ctx context.Context, req *dto.CreateCommentRequest) (*models.Comment, error)
}

type commentServiceImpl struct {
	comments     repository.CommentRepository
	offers       repository.OfferRepository
	users        repository.UserRepository
	commentCache *cache.CommentCache
	offerCache   *cache.OfferCache
	logger       logger.Logger
}

// NewCommentService creates a new CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	offers repository.OfferRepository,
	users repository.UserRepository,
	commentCache *cache.CommentCache,
	offerCache *cache.OfferCache,
	log logger.Logger,
) CommentService {
	return &commentServiceImpl{
		comments:     comments,
		offers:       offers,
		users:        users,
		commentCache: commentCache,
		offerCache:   offerCache,
		logger:       log.WithComponent("comment_service"),
	}
}

func (s *commentServiceImpl) FindByOffer(ctx context.Context, offerID string) ([]*models.Comment, error) {
	comments, _, err := cache.Load(ctx, s.commentCache.Service(), s.commentCache.ListKey(offerID), s.commentCache.TTL(),
		func(ctx context.Context) ([]*models.Comment, bool, error) {
			comments, err := s.comments.FindByOffer(ctx, offerID, constants.MaxCommentsPerOffer)
			return comments, err == nil, err
		})
	return comments, err
}

func (s *commentServiceImpl) Create(ctx context.Context, req *dto.CreateCommentRequest) (*models.Comment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	ok, err := s.offers.Exists(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrReferential.WithMessage("offer %s does not exist", req.OfferID)
	}
	ok, err = s.users.Exists(ctx, req.AuthorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrReferential.WithMessage("author %s does not exist", req.AuthorID)
	}

	comment := &models.Comment{
		OfferID:  req.OfferID,
		AuthorID: req.AuthorID,
		Text:     req.Text,
		Rating:   req.Rating,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	// The row exists from here on, so cached views go even if the counters fail.
	defer func() {
		s.commentCache.InvalidateOnCreate(ctx, req.OfferID)
		s.offerCache.InvalidateOnCounter(ctx, req.OfferID)
	}()

	if err := s.offers.IncCommentCount(ctx, req.OfferID, 1); err != nil {
		return nil, err
	}
	avg, _, err := s.comments.AverageRating(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if err := s.offers.SetRating(ctx, req.OfferID, math.Round(avg*10)/10); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Comment created", logger.String("offer_id", req.OfferID), logger.String("comment_id", comment.ID))
	return comment, nil
}
