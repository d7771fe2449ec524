package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/recipebox/internal/apperror"
)

// Verifier turns a raw bearer token into claims, or fails. AuthService
// implements it by validating the token and consulting the Denylist.
// A rejected token is reported as apperror.ErrUnauthorized; any other error
// means the check itself could not be made.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// contextKey is unexported so no other package can read or overwrite the
// claims stored by RequireAuth.
type contextKey struct{}

var claimsKey contextKey

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>"
// header with 401 and stores the token's claims in the request context for
// the handlers behind it. A verifier failure that is not a rejection is
// logged and answered with 503.
func RequireAuth(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing or malformed bearer token")
				return
			}

			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthorized) {
					unauthorized(w, "invalid or expired token")
					return
				}
				logger.Error("token verification failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeStatus(w, http.StatusServiceUnavailable, "unavailable",
					"authentication is temporarily unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims RequireAuth stored, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user's ID, or ("", false) on
// routes without RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}

// bearerToken extracts the token from the Authorization header. The scheme
// is matched case-insensitively as RFC 6750 allows.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="recipebox"`)
	writeStatus(w, http.StatusUnauthorized, "unauthorized", msg)
}

func writeStatus(w http.ResponseWriter, status int, errorType, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": msg,
	})
}
