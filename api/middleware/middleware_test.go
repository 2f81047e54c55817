package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		header   string
		query    string
		wantCode int
	}{
		{name: "no token configured", token: "", wantCode: http.StatusOK},
		{name: "valid bearer", token: "s3cret", header: "Bearer s3cret", wantCode: http.StatusOK},
		{name: "valid query token", token: "s3cret", query: "?access_token=s3cret", wantCode: http.StatusOK},
		{name: "missing token", token: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", token: "s3cret", header: "Basic s3cret", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			NewTokenMiddleware(tt.token).Authenticate(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	h := NewRateLimiter(1, 2).Limit(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_ErrorBody(t *testing.T) {
	h := NewRateLimiter(0.001, 1).Limit(ok)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body errors.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, errors.ErrorTypeRateLimit, body.Type)
	assert.NotEmpty(t, body.RequestID)

	// one token per 1000s
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 1000, retry, 2)
	details, ok := body.Details.(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, float64(retry), details["retry_after_seconds"], 0)
}

func TestRateLimiter_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	h := NewRateLimiter(10, 1).Limit(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 5; i++ {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	}

	// a single token refills after 100ms regardless of the rejections
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Code == http.StatusOK
	}, time.Second, 20*time.Millisecond)
}

func TestNewRateLimitError(t *testing.T) {
	assert.Equal(t, 1, errors.NewRateLimitError("slow down", 0).RetryAfterSeconds())
	assert.Equal(t, 3, errors.NewRateLimitError("slow down", 2100*time.Millisecond).RetryAfterSeconds())
	assert.Zero(t, errors.NewNotFoundError("missing", nil).RetryAfterSeconds())
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := NewRateLimiter(0, 0).Limit(ok)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
