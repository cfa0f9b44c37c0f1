package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goodtune/worktime/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const (
	// DefaultSessionTTL is the default lifetime of a visitor cookie.
	DefaultSessionTTL = 365 * 24 * time.Hour

	// tokenCacheSize bounds the parsed-token cache.
	tokenCacheSize = 1024
)

// ErrInvalidToken is returned when a visitor token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ContextKeyVisitor is the context key for the visitor ID.
const ContextKeyVisitor contextKey = "visitor_id"

// Identity assigns a stable anonymous visitor ID to every request.
//
// The ID travels in a signed JWT cookie. Visitors never log in: the
// first request mints a fresh ID, signs it, and sets the cookie; later
// requests present the token and get the same ID back. A small LRU
// keeps recently verified tokens so the hot path skips signature
// checks.
type Identity struct {
	cookieName string
	secret     []byte
	ttl        time.Duration
	tokens     *expirable.LRU[string, string]
	logger     zerolog.Logger
}

// visitorClaims is the JWT payload for a visitor cookie.
type visitorClaims struct {
	jwt.RegisteredClaims
}

// NewIdentity creates the visitor identity service. An empty secret
// generates a random one, which invalidates existing cookies on
// restart.
func NewIdentity(cookieName, secret string, ttl time.Duration, logger zerolog.Logger) (*Identity, error) {
	if cookieName == "" {
		cookieName = "worktime_visitor"
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate cookie secret: %w", err)
		}
		logger.Warn().Msg("No cookie secret configured, visitor cookies will not survive restarts")
	}

	// Cache entries expire with the tokens themselves, so a stale entry
	// can never outlive the cookie it memoizes.
	cache := expirable.NewLRU[string, string](tokenCacheSize, nil, ttl)

	return &Identity{
		cookieName: cookieName,
		secret:     key,
		ttl:        ttl,
		tokens:     cache,
		logger:     logger.With().Str("component", "identity").Logger(),
	}, nil
}

// Middleware resolves or mints the visitor ID and stores it on the
// request context.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor := ""

		if cookie, err := r.Cookie(i.cookieName); err == nil {
			visitor = i.resolve(cookie.Value)
		}

		if visitor == "" {
			visitor = storage.NewID()
			token, err := i.sign(visitor)
			if err != nil {
				i.logger.Error().Err(err).Msg("Failed to sign visitor token")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     i.cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(i.ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			i.tokens.Add(token, visitor)
			i.logger.Debug().Str("visitor", visitor).Msg("Issued new visitor cookie")
		}

		ctx := context.WithValue(r.Context(), ContextKeyVisitor, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve maps a presented token to a visitor ID, or "" when the token
// is invalid or expired.
func (i *Identity) resolve(token string) string {
	if visitor, ok := i.tokens.Get(token); ok {
		return visitor
	}

	visitor, err := i.verify(token)
	if err != nil {
		i.logger.Debug().Err(err).Msg("Rejected visitor token")
		return ""
	}

	i.tokens.Add(token, visitor)
	return visitor
}

// sign creates a signed visitor token.
func (i *Identity) sign(visitor string) (string, error) {
	now := time.Now()
	claims := visitorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   visitor,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// verify checks a token's signature and expiry and returns the visitor
// ID it carries.
func (i *Identity) verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &visitorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*visitorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// VisitorID extracts the visitor ID from a request context.
func VisitorID(ctx context.Context) string {
	if visitor, ok := ctx.Value(ContextKeyVisitor).(string); ok {
		return visitor
	}
	return ""
}
