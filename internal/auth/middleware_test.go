package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipebox/internal/apperror"
)

type verifierFunc func(ctx context.Context, token string) (*Claims, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

func TestRequireAuth(t *testing.T) {
	good := &Claims{UserID: "user-1", TokenID: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
	v := verifierFunc(func(_ context.Context, token string) (*Claims, error) {
		switch token {
		case "good":
			return good, nil
		case "down":
			return nil, errors.New("denylist: connection refused")
		}
		return nil, apperror.Unauthorized("invalid token")
	})

	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAuth(v, slog.New(slog.NewTextHandler(io.Discard, nil)))(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"scheme only", "Bearer", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"verifier unavailable", "Bearer down", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Empty(t, seenUser, "handler must not run")
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body["error"])
				assert.NotEmpty(t, body["message"])
			} else if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Empty(t, seenUser, "handler must not run")
				assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "unavailable", body["error"])
			} else {
				assert.Equal(t, "user-1", seenUser)
			}
		})
	}
}

func TestContextHelpers_Anonymous(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u", TokenID: "t"})
	c, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "t", c.TokenID)
}
