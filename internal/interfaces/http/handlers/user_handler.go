package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/interfaces/http/middleware"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// UserHandler handles registration, sign-in and profile requests.
// UserHandler 处理用户注册、登录与资料相关的 HTTP 请求。
type UserHandler struct {
	users   service.UserService
	tokens  *crypto.JWTManager
	revoked *crypto.Revocations
	logger  logger.Logger
}

// NewUserHandler creates a new UserHandler. revoked may be nil, in which
// case Logout only asks the client to drop its token.
func NewUserHandler(users service.UserService, tokens *crypto.JWTManager, revoked *crypto.Revocations, log logger.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, revoked: revoked, logger: log.WithComponent("user_handler")}
}

// Register creates an account.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, user)
}

// Login exchanges credentials for a bearer token.
func (h *UserHandler) Login(c *gin.Context) {
	if !h.tokens.Enabled() {
		dto.SendError(c, errors.ErrInternal.WithMessage("token signing is not configured"))
		return
	}
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	token, expiresAt, err := h.tokens.GenerateJWT(c.Request.Context(), user.ID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	h.logger.Info(c.Request.Context(), "User signed in", logger.String("user_id", user.ID))
	dto.SendSuccess(c, http.StatusOK, &dto.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Logout revokes the presented token for the rest of its lifetime. A failed
// revocation is logged and the client is still told to discard the token.
func (h *UserHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.TokenClaimsFrom(c); ok {
		_ = h.revoked.Revoke(c.Request.Context(), claims)
	}
	dto.SendSuccess(c, http.StatusNoContent, nil)
}

// Get returns a public profile.
func (h *UserHandler) Get(c *gin.Context) {
	id := c.Param("id")
	user, found, err := h.users.FindByID(c.Request.Context(), id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("user", id))
		return
	}
	dto.SendSuccess(c, http.StatusOK, user)
}

// UpdateAvatar sets the caller's own avatar.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	id := c.Param("id")
	if id != sub {
		dto.SendError(c, errors.ErrForbidden.WithMessage("cannot change another user's avatar"))
		return
	}
	var req dto.UpdateAvatarRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	user, found, err := h.users.UpdateAvatar(c.Request.Context(), id, &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("user", id))
		return
	}
	dto.SendSuccess(c, http.StatusOK, user)
}
