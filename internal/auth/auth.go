// Package auth verifies bearer tokens issued by the identity provider and
// exposes the authenticated identity through the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MindAthlete/backend/internal/models"
)

// ErrInvalidToken is returned by a Verifier when the presented token is
// missing, malformed, expired, or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid bearer token")

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates a raw bearer token and returns the caller's identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256-signed JWTs. The token subject is the user ID.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with the given shared
// secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify parses and validates the token, rejecting any signing method other
// than HMAC.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.Subject, Email: c.Email}, nil
}

// SignHS256 issues an HS256 token for the given identity. Used by local
// tooling and tests; production tokens come from the identity provider.
func SignHS256(secret []byte, id Identity, registered jwt.RegisteredClaims) (string, error) {
	registered.Subject = id.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{Email: id.Email, RegisteredClaims: registered})
	return token.SignedString(secret)
}

// StaticVerifier resolves tokens from a fixed map. Test use only.
type StaticVerifier map[string]Identity

func (s StaticVerifier) Verify(token string) (Identity, error) {
	id, ok := s[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

type contextKey struct{}

// IdentityFrom returns the identity stored by Middleware, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity. Exposed for
// handler tests that bypass the middleware.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware returns an http middleware that requires a valid Bearer token
// on every request and stores the resulting Identity in the context.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, "Missing Authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				writeUnauthorized(w, "Invalid Authorization header format")
				return
			}
			id, err := verifier.Verify(parts[1])
			if err != nil {
				slog.Warn("auth.Middleware: token rejected", "path", r.URL.Path, "error", err)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body, err := json.Marshal(models.Error(message))
	if err != nil {
		body = []byte(`{"status":"error","message":"unauthorized"}`)
	}
	if _, err := w.Write(body); err != nil {
		slog.Error("auth.Middleware: failed to write response", "error", err)
	}
}
