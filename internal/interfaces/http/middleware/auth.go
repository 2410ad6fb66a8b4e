package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// Principal decodes an optional bearer token and stores its subject for
// handlers. Missing, invalid or revoked tokens leave the request anonymous.
// revoked may be nil.
func Principal(tokens *crypto.JWTManager, revoked *crypto.Revocations, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tokens.Enabled() {
			c.Next()
			return
		}
		raw, ok := crypto.BearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			c.Next()
			return
		}

		claims, err := tokens.ParseJWT(raw)
		if err != nil {
			log.Debug(c.Request.Context(), "Ignoring invalid bearer token", logger.Error(err))
			c.Next()
			return
		}
		if revoked.IsRevoked(c.Request.Context(), claims.ID) {
			log.Debug(c.Request.Context(), "Ignoring revoked bearer token", logger.String("subject", claims.Subject))
			c.Next()
			return
		}

		c.Set(string(constants.ContextKeyPrincipal), claims.Subject)
		c.Set(string(constants.ContextKeyTokenClaims), claims)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), constants.ContextKeyPrincipal, claims.Subject))
		c.Next()
	}
}

// RequireAuth rejects requests that Principal left anonymous.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			dto.SendError(c, errors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated user id, if any.
func PrincipalFrom(c *gin.Context) (string, bool) {
	sub := c.GetString(string(constants.ContextKeyPrincipal))
	return sub, sub != ""
}

// TokenClaimsFrom returns the claims of the bearer token Principal accepted.
func TokenClaimsFrom(c *gin.Context) (*crypto.Claims, bool) {
	v, ok := c.Get(string(constants.ContextKeyTokenClaims))
	if !ok {
		return nil, false
	}
	claims, ok := v.(*crypto.Claims)
	return claims, ok
}
