package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-backend/internal/shared/response"
)

const roleAdmin = "admin"

// AdminMiddleware gates a route group on the admin role placed into the
// context by AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if r, ok := role.(string); !ok || r != roleAdmin {
			response.ErrorResponse(c, http.StatusForbidden,
				response.CodeForbidden, "Admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
