package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/itsatony/soundscape/hub/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// TokenMiddleware guards the dashboard routes with a static bearer token
type TokenMiddleware struct {
	token string
}

// NewTokenMiddleware creates the middleware. An empty token disables the check.
func NewTokenMiddleware(token string) *TokenMiddleware {
	if token == "" {
		nuts.L.Warnf("[Auth] No API token configured, dashboard routes are public")
	}
	return &TokenMiddleware{token: token}
}

// Authenticate validates the bearer token
func (m *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			handleError(w, errors.NewAuthError("invalid token", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	// Browsers cannot set headers on websocket upgrades
	return r.URL.Query().Get("access_token")
}

func handleError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*errors.APIError)
	if !ok {
		apiErr = errors.NewInternalError("Internal Server Error", err)
	}
	apiErr.WithRequestID(nuts.NID("req", 12))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	json.NewEncoder(w).Encode(apiErr)
}
