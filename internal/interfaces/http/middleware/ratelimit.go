package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/ratelimit"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

// RateLimit gates requests per visitor identity before any quota work runs.
// A limiter backend failure fails open: quota enforcement still bounds
// abuse, and dropping legitimate traffic on a Redis hiccup is worse.
func RateLimit(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := VisitorID(c)
		if key == "" {
			key = IPHash(c)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg)
		if err != nil {
			log.Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
