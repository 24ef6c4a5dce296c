package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lineside/mes/internal/domain/user"
)

// ErrUnauthorized indicates invalid, missing or revoked credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID   string
	Username string
	Role     user.Role
}

type identityKey struct{}

// IdentityFromContext returns the caller identity, if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies signed bearer tokens. Logged-out tokens go
// on an in-memory denylist until they expire on their own.
type Auth struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAuth creates a token authority with the given signing secret
func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}
}

// Issue signs a token for the given user
func (a *Auth) Issue(u *user.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	return token.SignedString(a.secret)
}

// Verify parses a token and returns the caller identity
func (a *Auth) Verify(tokenString string) (Identity, error) {
	if a.isRevoked(tokenString) {
		return Identity{}, ErrUnauthorized
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthorized
	}

	return Identity{
		UserID:   c.Subject,
		Username: c.Username,
		Role:     user.Role(c.Role),
	}, nil
}

// Revoke denylists a token until its natural expiry
func (a *Auth) Revoke(tokenString string) {
	expiry := time.Now().Add(a.ttl)
	var c claims
	if _, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}); err == nil && c.ExpiresAt != nil {
		expiry = c.ExpiresAt.Time
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for token, exp := range a.revoked {
		if exp.Before(now) {
			delete(a.revoked, token)
		}
	}
	a.revoked[tokenString] = expiry
}

func (a *Auth) isRevoked(tokenString string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	exp, ok := a.revoked[tokenString]
	return ok && exp.After(time.Now())
}

// Middleware enforces bearer token authentication and stores the
// caller identity in the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		identity, err := a.Verify(token)
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without the admin role. It must run
// inside Auth.Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Role != user.RoleAdmin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
