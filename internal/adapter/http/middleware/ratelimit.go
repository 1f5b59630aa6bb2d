package middleware

import (
	"fmt"
	"strconv"
	"time"

	"atm-gateway/internal/core/ports"
	"atm-gateway/pkg/apperror"
	"atm-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimiter limits requests per client IP and endpoint group. It shares the
// fixed-window limiter used for ATM logins and lets requests through when the
// limiter fails.
func RateLimiter(limiter ports.LoginLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("admin:%s:%s", group, c.ClientIP())

		allowed, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		if !allowed {
			retryAfter := int64(rule.Window.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}
