package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-backend/pkg/cache"
)

// Per-operation-class limits. Refund mutations are low volume by nature;
// anything above this is either a runaway script or an abuse attempt.
const (
	RefundMutationMaxPerMinute = 30
	BulkMutationMaxPerMinute   = 5
)

// RateLimit limits requests per authenticated actor for one operation
// class, backed by a redis counter with a one-minute window.
func RateLimit(c cache.Cache, operationClass string, maxPerMinute int) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := ctx.GetString("request_id")
		if userID, exists := ctx.Get("userID"); exists {
			actor = fmt.Sprintf("%v", userID)
		}

		key := fmt.Sprintf("ratelimit:%s:%s", operationClass, actor)

		count, err := c.Increment(ctx.Request.Context(), key)
		if err != nil {
			// Limiter outage must not block traffic.
			ctx.Next()
			return
		}
		if count == 1 {
			c.Expire(ctx.Request.Context(), key, time.Minute)
		}

		if count > int64(maxPerMinute) {
			ctx.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests, slow down",
			})
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
