package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/interfaces/http/middleware"
	"github.com/turtacn/sixcities/pkg/errors"
)

// bindJSON decodes the body into req. Field validation happens in the services.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.ErrValidation.WithMessage("malformed request body").WithError(err)
	}
	return nil
}

// queryLimit parses ?limit=. Absent means 0, which the services replace by
// their default page size.
func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.ErrValidation.WithDetails(map[string]any{"limit": "must be a non-negative integer"})
	}
	return n, nil
}

// principal returns the authenticated user id. Routes calling it sit behind
// middleware.RequireAuth, so a missing principal is a wiring error.
func principal(c *gin.Context) (string, error) {
	sub, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", errors.ErrUnauthorized
	}
	return sub, nil
}

func notFound(kind, id string) error {
	return errors.ErrNotFound.WithMessage("%s %q not found", kind, id)
}
