// Package crypto issues and verifies the HS256 principal tokens handed out at sign-in.
package crypto

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

const defaultTokenTTL = 24 * time.Hour

// JWTManager signs and verifies principal tokens with a shared secret.
// A manager built with an empty secret verifies nothing.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    logger.Logger
}

// NewJWTManager creates a new JWTManager.
func NewJWTManager(cfg config.JWTConfig, log logger.Logger) *JWTManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// Enabled reports whether a signing secret is configured.
func (j *JWTManager) Enabled() bool {
	return j != nil && len(j.secret) > 0
}

// GenerateJWT creates and signs a token for subject.
func (j *JWTManager) GenerateJWT(ctx context.Context, subject string) (string, time.Time, error) {
	if !j.Enabled() {
		return "", time.Time{}, errors.ErrInternal.WithMessage("jwt secret is not configured")
	}

	now := j.now()
	expiresAt := now.Add(j.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		j.log.Error(ctx, "Failed to sign JWT", err)
		return "", time.Time{}, errors.ErrInternal.WithError(err)
	}
	return signed, expiresAt, nil
}

// Claims is the verified content of a principal token.
type Claims struct {
	Subject   string
	ID        string
	ExpiresAt time.Time
}

// VerifyJWT parses tokenString and returns its subject.
func (j *JWTManager) VerifyJWT(tokenString string) (string, error) {
	claims, err := j.ParseJWT(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseJWT verifies tokenString and returns its claims.
func (j *JWTManager) ParseJWT(tokenString string) (*Claims, error) {
	if !j.Enabled() {
		return nil, errors.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrUnauthorized.WithMessage("token expired")
		}
		return nil, errors.ErrUnauthorized.WithError(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.ErrUnauthorized.WithMessage("token has no subject")
	}

	out := &Claims{Subject: claims.Subject, ID: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
