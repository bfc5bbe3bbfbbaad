package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/mjlee/confirmail-backend/internal/errors"
	"github.com/mjlee/confirmail-backend/pkg/redis"
)

// IPThrottle caps issuance requests per client IP using a redis fixed
// window. This sits in front of the per-email database limit and catches
// bulk abuse across many addresses. Fails open: if the counter cannot be
// read the request proceeds (the per-email limit still applies).
func IPThrottle(requestsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestsPerMinute <= 0 || redis.GetClient() == nil {
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)

		key := fmt.Sprintf("throttle:issue:%s", c.ClientIP())
		count, err := redis.CountRequest(c.Request.Context(), key, time.Minute)
		if err != nil {
			log.Warn("IP throttle check failed, allowing request", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if count > int64(requestsPerMinute) {
			log.Warn("IP throttle exceeded", map[string]interface{}{
				"ip":    c.ClientIP(),
				"count": count,
			})
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "Too many requests from this address. Please slow down.",
				"code":       apperrors.CodeRateLimitExceeded,
				"retryAfter": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
