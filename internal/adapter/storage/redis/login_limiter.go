package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LoginLimiter implements ports.LoginLimiter with Redis counters.
type LoginLimiter struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewLoginLimiter creates a new Redis-backed login attempt limiter.
func NewLoginLimiter(client *goredis.Client) *LoginLimiter {
	return &LoginLimiter{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Allow counts one attempt for key and reports whether it is within limit.
// It uses a fixed-window counter: INCR + EXPIRE on a key scoped by the
// window number (unix time / window).
func (l *LoginLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	if window < time.Second {
		window = time.Second
	}
	windowID := l.now().Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowID)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis login limit incr: %w", err)
	}

	// First hit opens the window; +1s keeps the key until the window is over.
	if count == 1 {
		l.client.Expire(ctx, redisKey, window+time.Second)
	}

	return count <= limit, nil
}
