// Package auth resolves the authenticated owner identity for each request.
// A missing session and a malformed owner id are treated the same way:
// the request never reaches the datastore.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id stored on the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithUserID returns a context carrying the user id; used by handlers and
// tests.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Verifier validates bearer tokens and extracts the owner id from the
// subject claim.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier. An empty secret marks the deployment as
// unconfigured; requests then fail with 503, distinct from auth failures.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Configured reports whether a signing secret is present.
func (v *Verifier) Configured() bool {
	return v.secret != ""
}

// Middleware rejects requests without a valid session before any datastore
// access. The subject claim must be a well-formed UUID; anything else is
// equivalent to no session.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Configured() {
			http.Error(w, `{"error":"auth is not configured"}`, http.StatusServiceUnavailable)
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		userID, err := v.Verify(tokenString)
		if err != nil {
			zap.L().Debug("auth: rejected token", zap.Error(err))
			http.Error(w, `{"error":"invalid session"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// Verify parses and validates a token, returning the owner id.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(v.secret), nil
	})
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	// A non-well-formed owner id is equivalent to no session.
	if _, err := uuid.Parse(sub); err != nil {
		return "", err
	}
	return sub, nil
}

// Sign issues a token for the given user id. Used by the CLI and tests.
func (v *Verifier) Sign(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
	})
	return token.SignedString([]byte(v.secret))
}
