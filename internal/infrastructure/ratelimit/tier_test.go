package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/logger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   ratelimit.Tier
	}{
		{http.MethodPost, "/users/login", constants.TierAuth},
		{http.MethodPost, "/users/register", constants.TierAuth},
		{http.MethodDelete, "/users/logout", constants.TierAuth},
		{http.MethodPost, "/api/v1/sign-in", constants.TierAuth},
		{http.MethodPost, "/users/42/avatar", constants.TierUpload},
		{http.MethodPut, "/offers/7/preview-image", constants.TierUpload},
		{http.MethodPost, "/upload", constants.TierUpload},
		{http.MethodGet, "/favorites", constants.TierUserAPI},
		{http.MethodGet, "/offers/7/comments", constants.TierUserAPI},
		{http.MethodPost, "/offers", constants.TierUserAPI},
		{http.MethodPatch, "/offers/7", constants.TierUserAPI},
		{http.MethodDelete, "/rentOffers/7", constants.TierUserAPI},
		{http.MethodGet, "/offers", constants.TierPublic},
		{http.MethodGet, "/offers/7", constants.TierPublic},
		{http.MethodHead, "/users/7", constants.TierPublic},
		{http.MethodGet, "/cities", constants.TierPublic},
		{http.MethodPost, "/cities", constants.TierPublic},
		{http.MethodGet, "/", constants.TierPublic},
		{http.MethodGet, "/OFFERS/7/Comments?limit=5", constants.TierUserAPI},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ratelimit.Classify(tt.path, tt.method))
		})
	}
}

func TestClassify_AuthWinsOverUserAPI(t *testing.T) {
	// Matches the non-GET users rule and the login rule.
	assert.Equal(t, constants.TierAuth, ratelimit.Classify("/users/login", http.MethodPost))
	// Matches the comments rule and the upload rule.
	assert.Equal(t, constants.TierUpload, ratelimit.Classify("/comments/images", http.MethodPost))
	// Matches every rule.
	assert.Equal(t, constants.TierAuth, ratelimit.Classify("/favorites/upload/logout", http.MethodPost))
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1.2.3.4", "1.2.3.4", true},
		{" 1.2.3.4 ", "1.2.3.4", true},
		{"1.2.3.4:5678", "1.2.3.4", true},
		{"::ffff:1.2.3.4", "1.2.3.4", true},
		{"[::ffff:1.2.3.4]:80", "1.2.3.4", true},
		{"2001:db8:1:2:3:4:5:6", "2001:db8:1:2::/64", true},
		{"2001:0db8:0001:0002:ffff:ffff:ffff:ffff", "2001:db8:1:2::/64", true},
		{"[2001:db8:1:2::9]:443", "2001:db8:1:2::/64", true},
		{"fe80::1%eth0", "fe80::/64", true},
		{"not-an-ip", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ratelimit.NormalizeIP(tt.raw, 64)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestIdentityResolver(t *testing.T) {
	tokens := crypto.NewJWTManager(config.JWTConfig{Secret: "s3cret", Issuer: "sixcities", TTL: time.Hour}, logger.NewNoopLogger())
	token, _, err := tokens.GenerateJWT(context.Background(), "user-9")
	require.NoError(t, err)

	newRequest := func(remote, auth, xff string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/favorites/1", nil)
		req.RemoteAddr = remote
		if auth != "" {
			req.Header.Set(constants.HeaderAuthorization, "Bearer "+auth)
		}
		if xff != "" {
			req.Header.Set(constants.HeaderForwardedFor, xff)
		}
		return req
	}

	r := ratelimit.NewIdentityResolver(tokens, false, 64)

	t.Run("principal for user api", func(t *testing.T) {
		assert.Equal(t, "user:user-9", r.Resolve(newRequest("1.2.3.4:1000", token, ""), constants.TierUserAPI))
	})
	t.Run("address for other tiers even when authenticated", func(t *testing.T) {
		assert.Equal(t, "ip:1.2.3.4", r.Resolve(newRequest("1.2.3.4:1000", token, ""), constants.TierAuth))
		assert.Equal(t, "ip:1.2.3.4", r.Resolve(newRequest("1.2.3.4:1000", token, ""), constants.TierPublic))
	})
	t.Run("invalid token falls back to address", func(t *testing.T) {
		assert.Equal(t, "ip:1.2.3.4", r.Resolve(newRequest("1.2.3.4:1000", "forged", ""), constants.TierUserAPI))
	})
	t.Run("forwarded header ignored unless trusted", func(t *testing.T) {
		assert.Equal(t, "ip:10.0.0.1", r.Resolve(newRequest("10.0.0.1:1000", "", "9.9.9.9"), constants.TierPublic))

		trusting := ratelimit.NewIdentityResolver(tokens, true, 64)
		assert.Equal(t, "ip:9.9.9.9", trusting.Resolve(newRequest("10.0.0.1:1000", "", "9.9.9.9, 10.0.0.1"), constants.TierPublic))
	})
	t.Run("ipv6 spellings collapse", func(t *testing.T) {
		a := r.Resolve(newRequest("[2001:db8::1]:1000", "", ""), constants.TierPublic)
		b := r.Resolve(newRequest("[2001:0db8:0:0:ffff::2]:2000", "", ""), constants.TierPublic)
		assert.Equal(t, a, b)
	})
	t.Run("no token manager", func(t *testing.T) {
		anon := ratelimit.NewIdentityResolver(nil, false, 0)
		assert.Equal(t, "ip:1.2.3.4", anon.Resolve(newRequest("1.2.3.4:1000", token, ""), constants.TierUserAPI))
	})
}
