package middleware

import (
	"net/http"
	"strconv"

	"github.com/itsatony/soundscape/hub/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiter answers 429 once the token bucket is empty
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Limit applies the limiter to next
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limiter != nil {
			res := l.limiter.Reserve()
			if delay := res.Delay(); delay > 0 {
				// rejected requests must not consume tokens
				res.Cancel()
				apiErr := errors.NewRateLimitError("too many requests", delay)
				w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfterSeconds()))
				handleError(w, apiErr)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
