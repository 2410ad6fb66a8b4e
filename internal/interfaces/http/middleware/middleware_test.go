package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/internal/interfaces/http/middleware"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTokens() *crypto.JWTManager {
	return crypto.NewJWTManager(config.JWTConfig{Secret: "s3cret", Issuer: "sixcities", TTL: time.Hour}, logger.NewNoopLogger())
}

func newLimiter(t *testing.T, limit int64) *ratelimit.Limiter {
	t.Helper()
	policies := map[ratelimit.Tier]ratelimit.TierPolicy{}
	for _, tier := range constants.RateLimitTiers {
		policies[tier] = ratelimit.TierPolicy{Limit: limit, Window: time.Minute}
	}
	l, err := ratelimit.NewLimiter(ratelimit.Config{Policies: policies, FallbackEnabled: true}, nil,
		logger.NewNoopLogger(), nil, ratelimit.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return l
}

func newRateLimitedRouter(t *testing.T, limit int64) *gin.Engine {
	t.Helper()
	tokens := newTokens()
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RateLimit(newLimiter(t, limit), ratelimit.NewIdentityResolver(tokens, false, 64), logger.NewNoopLogger()))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/offers", ok)
	r.POST("/users/login", ok)
	r.GET("/favorites", ok)
	return r
}

func serve(r http.Handler, method, path, remote, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_SetsHeadersWithinBudget(t *testing.T) {
	r := newRateLimitedRouter(t, 3)

	w := serve(r, http.MethodGet, "/offers", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get(constants.HeaderRateLimitLimit))
	assert.Equal(t, "2", w.Header().Get(constants.HeaderRateLimitRemaining))
	assert.Equal(t, "1714564860", w.Header().Get(constants.HeaderRateLimitReset))
	assert.Empty(t, w.Header().Get(constants.HeaderRetryAfter))
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	r := newRateLimitedRouter(t, 2)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/users/login", "10.0.0.1:1000", "").Code)
	}

	w := serve(r, http.MethodPost, "/users/login", "10.0.0.1:1000", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get(constants.HeaderRetryAfter))
	assert.Equal(t, "0", w.Header().Get(constants.HeaderRateLimitRemaining))
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))

	var body dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, errors.CodeRateLimited, body.Error.Code)
	assert.EqualValues(t, 60, body.Error.Details["retry_after"])

	// Another client and another tier are unaffected.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/users/login", "10.0.0.2:1000", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/offers", "10.0.0.1:1000", "").Code)
}

func TestRateLimit_UserAPICountsPerPrincipal(t *testing.T) {
	r := newRateLimitedRouter(t, 1)
	tokens := newTokens()
	anna, _, err := tokens.GenerateJWT(context.Background(), "anna")
	require.NoError(t, err)
	boris, _, err := tokens.GenerateJWT(context.Background(), "boris")
	require.NoError(t, err)

	// Same address, different principals.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/favorites", "10.0.0.1:1000", anna).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/favorites", "10.0.0.1:1000", boris).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/favorites", "10.0.0.9:1000", anna).Code)
}

func TestPrincipal(t *testing.T) {
	tokens := newTokens()
	token, _, err := tokens.GenerateJWT(context.Background(), "anna")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Principal(tokens, nil, logger.NewNoopLogger()))
	r.GET("/whoami", func(c *gin.Context) {
		sub, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, sub)
	})
	r.GET("/private", middleware.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, "anna", serve(r, http.MethodGet, "/whoami", "", token).Body.String())
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/whoami", "", "forged").Body.String())
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/whoami", "", "").Body.String())

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/private", "", token).Code)
	w := serve(r, http.MethodGet, "/private", "", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeUnauthorized)
}

func TestPrincipal_DisabledManager(t *testing.T) {
	disabled := crypto.NewJWTManager(config.JWTConfig{}, logger.NewNoopLogger())
	token, _, err := newTokens().GenerateJWT(context.Background(), "anna")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Principal(disabled, nil, logger.NewNoopLogger()))
	r.GET("/private", middleware.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/private", "", token).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, dto.RequestID(c)) })

	w := serve(r, http.MethodGet, "/", "", "")
	generated := w.Header().Get(constants.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, "caller-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "caller-id", w.Header().Get(constants.HeaderRequestID))
	assert.Equal(t, "caller-id", w.Body.String())
}

func TestObservability(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(middleware.Observability(otel.Tracer("test"), metrics))
	r.GET("/offers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/offers/1", "", "")
	serve(r, http.MethodGet, "/offers/2", "", "")
	serve(r, http.MethodGet, "/missing", "", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/offers/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "not_found", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.HTTPRequestDuration))
}
