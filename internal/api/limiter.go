package api

import (
	"net/http"
	"time"

	"shareit/internal/domain"
	"shareit/internal/metrics"

	"github.com/rs/zerolog"
)

// callerLimiter caps requests per client key within a fixed window. Limiter
// failures let the request through.
type callerLimiter struct {
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
	logger  *zerolog.Logger
}

func newCallerLimiter(limiter domain.RateLimiter, limit int, window time.Duration, logger *zerolog.Logger) *callerLimiter {
	return &callerLimiter{limiter: limiter, limit: limit, window: window, logger: logger}
}

func (l *callerLimiter) Wrap(next http.Handler) http.Handler {
	if l.limiter == nil || l.limit <= 0 || l.window <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		allowed, err := l.limiter.Allow(r.Context(), key, l.limit, l.window)
		if err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			metrics.IncRateLimited()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
