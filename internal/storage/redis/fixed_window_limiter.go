package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FixedWindowLimiter counts hits per key in fixed, clock-aligned windows.
type FixedWindowLimiter struct {
	client goredis.Cmdable
	prefix string
	window time.Duration
	now    func() time.Time
}

func NewFixedWindowLimiter(client goredis.Cmdable, prefix string, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rate"
	}
	if window < time.Second {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		window: window,
		now:    time.Now,
	}
}

func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}

// Incr increments the counter for (key, current window) and returns the
// count together with the time left until the window resets.
func (l *FixedWindowLimiter) Incr(ctx context.Context, key string) (int64, time.Duration, error) {
	redisKey, resetIn := l.bucketKey(key)

	var incr *goredis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		// the key embeds the bucket, so the TTL only garbage-collects it
		pipe.Expire(ctx, redisKey, 2*l.window)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return incr.Val(), resetIn, nil
}

func (l *FixedWindowLimiter) bucketKey(key string) (string, time.Duration) {
	if key == "" {
		key = "unknown"
	}

	windowSeconds := int64(l.window / time.Second)
	now := l.now().UTC()
	bucket := now.Unix() / windowSeconds
	resetAt := time.Unix((bucket+1)*windowSeconds, 0)

	return fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket), resetAt.Sub(now)
}
