package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/internal/domain/repository/mocks"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

func TestCommentService_CreateRefreshesOfferCounters(t *testing.T) {
	mr, h := newTestHelpers(t)
	comments := new(mocks.MockCommentRepository)
	offers := new(mocks.MockOfferRepository)
	users := new(mocks.MockUserRepository)
	svc := service.NewCommentService(comments, offers, users, h.Comments, h.Offers, logger.NewNoopLogger())
	ctx := context.Background()
	offerID, authorID := uuid.NewString(), uuid.NewString()

	comments.On("FindByOffer", mock.Anything, offerID, 50).Return([]*models.Comment{}, nil).Once()
	list, err := svc.FindByOffer(ctx, offerID)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.True(t, mr.Exists("comments:offer:"+offerID))
	require.NoError(t, mr.Set("offers:id:"+offerID, "{}"))

	offers.On("Exists", mock.Anything, offerID).Return(true, nil)
	users.On("Exists", mock.Anything, authorID).Return(true, nil)
	comments.On("Create", mock.Anything, mock.AnythingOfType("*models.Comment")).Return(nil)
	offers.On("IncCommentCount", mock.Anything, offerID, 1).Return(nil).Once()
	comments.On("AverageRating", mock.Anything, offerID).Return(4.333333, int64(3), nil)
	offers.On("SetRating", mock.Anything, offerID, 4.3).Return(nil).Once()

	comment, err := svc.Create(ctx, &dto.CreateCommentRequest{
		OfferID:  offerID,
		AuthorID: authorID,
		Text:     "Lovely stay, would return.",
		Rating:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, offerID, comment.OfferID)

	assert.False(t, mr.Exists("comments:offer:"+offerID))
	assert.False(t, mr.Exists("offers:id:"+offerID))
	offers.AssertExpectations(t)
	comments.AssertExpectations(t)

	comments.On("FindByOffer", mock.Anything, offerID, 50).Return([]*models.Comment{comment}, nil).Once()
	list, err = svc.FindByOffer(ctx, offerID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCommentService_CreateInvalidatesWhenCountersFail(t *testing.T) {
	mr, h := newTestHelpers(t)
	comments := new(mocks.MockCommentRepository)
	offers := new(mocks.MockOfferRepository)
	users := new(mocks.MockUserRepository)
	svc := service.NewCommentService(comments, offers, users, h.Comments, h.Offers, logger.NewNoopLogger())
	ctx := context.Background()
	offerID, authorID := uuid.NewString(), uuid.NewString()

	comments.On("FindByOffer", mock.Anything, offerID, 50).Return([]*models.Comment{}, nil).Once()
	_, err := svc.FindByOffer(ctx, offerID)
	require.NoError(t, err)
	require.True(t, mr.Exists("comments:offer:"+offerID))
	require.NoError(t, mr.Set("offers:id:"+offerID, "{}"))

	offers.On("Exists", mock.Anything, offerID).Return(true, nil)
	users.On("Exists", mock.Anything, authorID).Return(true, nil)
	comments.On("Create", mock.Anything, mock.AnythingOfType("*models.Comment")).Return(nil).Once()
	offers.On("IncCommentCount", mock.Anything, offerID, 1).Return(errors.ErrInternal).Once()

	_, err = svc.Create(ctx, &dto.CreateCommentRequest{OfferID: offerID, AuthorID: authorID, Text: "Quiet street, great host.", Rating: 5})
	require.Error(t, err)

	assert.False(t, mr.Exists("comments:offer:"+offerID))
	assert.False(t, mr.Exists("offers:id:"+offerID))
	comments.AssertNotCalled(t, "AverageRating", mock.Anything, mock.Anything)
}

func TestCommentService_CreateRequiresOfferAndAuthor(t *testing.T) {
	_, h := newTestHelpers(t)
	comments := new(mocks.MockCommentRepository)
	offers := new(mocks.MockOfferRepository)
	users := new(mocks.MockUserRepository)
	svc := service.NewCommentService(comments, offers, users, h.Comments, h.Offers, logger.NewNoopLogger())
	ctx := context.Background()
	offerID, authorID := uuid.NewString(), uuid.NewString()
	req := &dto.CreateCommentRequest{OfferID: offerID, AuthorID: authorID, Text: "Great place", Rating: 5}

	offers.On("Exists", mock.Anything, offerID).Return(false, nil).Once()
	_, err := svc.Create(ctx, req)
	assert.True(t, errors.Is(err, errors.ErrReferential))

	offers.On("Exists", mock.Anything, offerID).Return(true, nil)
	users.On("Exists", mock.Anything, authorID).Return(false, nil)
	_, err = svc.Create(ctx, req)
	assert.True(t, errors.Is(err, errors.ErrReferential))

	_, err = svc.Create(ctx, &dto.CreateCommentRequest{OfferID: offerID, AuthorID: authorID, Text: "ok", Rating: 9})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidation, appErr.Code)

	comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_CreateHashesPassword(t *testing.T) {
	_, h := newTestHelpers(t)
	repo := new(mocks.MockUserRepository)
	svc := service.NewUserService(repo, h.Users, logger.NewNoopLogger())
	ctx := context.Background()

	repo.On("FindByEmail", mock.Anything, "anna@example.com").Return(nil, nil).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := svc.Create(ctx, &dto.CreateUserRequest{Name: "Anna", Email: "anna@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	repo.On("FindByEmail", mock.Anything, "anna@example.com").Return(user, nil)
	_, err = svc.Create(ctx, &dto.CreateUserRequest{Name: "Anna", Email: "anna@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.ErrConflict))
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestUserService_AvatarUpdateDropsCachedEntries(t *testing.T) {
	mr, h := newTestHelpers(t)
	repo := new(mocks.MockUserRepository)
	svc := service.NewUserService(repo, h.Users, logger.NewNoopLogger())
	ctx := context.Background()

	anna := &models.User{ID: "u1", Name: "Anna", Email: "anna@example.com"}
	repo.On("FindByID", mock.Anything, "u1").Return(anna, nil).Once()
	repo.On("FindByEmail", mock.Anything, "Anna@Example.com").Return(anna, nil).Once()

	_, found, err := svc.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	_, found, err = svc.FindByEmail(ctx, "Anna@Example.com")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, mr.Exists("users:id:u1"))
	require.True(t, mr.Exists("users:email:anna@example.com"))

	ok, err := svc.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)

	updated := *anna
	updated.AvatarURL = "https://img.example.com/anna.png"
	repo.On("UpdateByID", mock.Anything, "u1", map[string]any{"avatar_url": updated.AvatarURL}).Return(&updated, nil)

	user, found, err := svc.UpdateAvatar(ctx, "u1", &dto.UpdateAvatarRequest{AvatarURL: updated.AvatarURL})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated.AvatarURL, user.AvatarURL)

	assert.False(t, mr.Exists("users:id:u1"))
	assert.False(t, mr.Exists("users:email:anna@example.com"))
	assert.False(t, mr.Exists("users:emails:u1"))
}

func TestUserService_Authenticate(t *testing.T) {
	_, h := newTestHelpers(t)
	repo := new(mocks.MockUserRepository)
	svc := service.NewUserService(repo, h.Users, logger.NewNoopLogger())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	anna := &models.User{ID: "u1", Name: "Anna", Email: "anna@example.com", PasswordHash: string(hash)}
	repo.On("FindByEmail", mock.Anything, "anna@example.com").Return(anna, nil)
	repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	user, err := svc.Authenticate(ctx, &dto.LoginRequest{Email: "anna@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = svc.Authenticate(ctx, &dto.LoginRequest{Email: "anna@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	_, err = svc.Authenticate(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	_, err = svc.Authenticate(ctx, &dto.LoginRequest{Email: "not-an-email", Password: "secret1"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidation, appErr.Code)
}
