// internal/middleware/rate_limit_middleware.go
package middleware

import (
	"net/http"
	"time"

	"subpass-service/internal/pkg/response"
	"subpass-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RateLimitMiddleware struct {
	limiter *session.RateLimiter
	logger  *zap.Logger
}

func NewRateLimitMiddleware(limiter *session.RateLimiter, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit enforces a fixed-window quota per caller and route. Authenticated
// callers are keyed by address, anonymous ones by client IP. Limiter errors
// fail open so a Redis outage does not take the API down with it.
func (m *RateLimitMiddleware) Limit(maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := GetAddress(c)
		if !ok {
			key = c.ClientIP()
		}

		allowed, err := m.limiter.CheckAPIRateLimit(c.Request.Context(), key, c.FullPath(), maxRequests, window)
		if err != nil {
			m.logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		c.Next()
	}
}
