// Package identity turns bearer tokens into session identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrMissingToken is returned by TokenFromRequest when no bearer token is present.
var ErrMissingToken = errors.New("missing bearer token")

var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Claims are the token claims the storefront reads. The user id is taken
// from userId, falling back to the registered subject.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed tokens.
type Verifier struct {
	secret []byte
	logger zerolog.Logger
}

// NewVerifier creates a verifier for tokens signed with secret.
func NewVerifier(secret string, logger zerolog.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// Verify parses token and returns the identity it carries. Any failure is
// reported as model.ErrUnauthorised wrapping the cause.
func (v *Verifier) Verify(token string) (model.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods(validMethods))
	if err != nil || !parsed.Valid {
		v.logger.Debug().Err(err).Msg("token validation failed")
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrUnauthorised, err)
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	if userID == "" {
		v.logger.Debug().Msg("token has no user id claim")
		return model.Identity{}, fmt.Errorf("%w: user id claim missing", model.ErrUnauthorised)
	}

	return model.Identity{UserID: userID, Email: claims.Email}, nil
}

// Issue signs a token for identity valid for ttl.
func (v *Verifier) Issue(identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: invalid token format", model.ErrUnauthorised)
	}
	return parts[1], nil
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext returns the identity stored in ctx, or the anonymous identity.
func FromContext(ctx context.Context) model.Identity {
	identity, _ := ctx.Value(contextKey{}).(model.Identity)
	return identity
}
