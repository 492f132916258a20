package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
	"go.uber.org/zap"
)

// WindowCounter counts hits per key in the current window. It is backed by
// the Redis fixed-window store in production.
type WindowCounter interface {
	Incr(ctx context.Context, key string) (count int64, resetIn time.Duration, err error)
}

// RateLimitMiddleware rejects requests with 429 once a client exceeds limit
// hits in the counter's window. When the counter fails the request is let
// through. A nil resolver keys every request by its peer address.
func RateLimitMiddleware(counter WindowCounter, limit int, clients *ClientResolver) func(http.Handler) http.Handler {
	if counter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if limit <= 0 {
		limit = 60
	}
	max := int64(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			count, resetIn, err := counter.Incr(ctx, clients.Key(r))
			if err != nil {
				logger.Warn("rate limit store unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := max - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > max {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(resetIn)))
				httputils.WriteAPIError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
