package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-backend/internal/shared/middleware"
	"storefront-backend/pkg/container"
)

// setupRouter registers middleware and routes.
//
// Route groups:
//   - /health, /webhooks: unauthenticated
//   - /api/v1: authenticated customers
//   - /api/v1/admin: admin role required
func setupRouter(engine *gin.Engine, c *container.Container) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS())

	engine.GET("/health", func(ctx *gin.Context) {
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "reason": "database"})
			return
		}
		if err := c.Redis.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "reason": "redis"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": c.Config.App.Version,
		})
	})

	// Gateway webhooks authenticate via signature, not JWT.
	webhooks := engine.Group("/webhooks")
	{
		webhooks.POST("/stripe", c.WebhookHandler.HandleStripeEvent)
	}

	v1 := engine.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
	{
		refundLimit := middleware.RateLimit(c.Cache, "refund", middleware.RefundMutationMaxPerMinute)

		v1.POST("/returns", refundLimit, c.RefundHandler.CreateReturn)
		v1.DELETE("/refunds/:id", refundLimit, c.RefundHandler.Cancel)
		v1.GET("/orders/:id/refunds", c.RefundHandler.ListByOrder)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		{
			bulkLimit := middleware.RateLimit(c.Cache, "refund-bulk", middleware.BulkMutationMaxPerMinute)

			admin.POST("/refunds", refundLimit, c.RefundHandler.Create)
			admin.GET("/refunds", c.RefundHandler.List)
			admin.GET("/refunds/:id", c.RefundHandler.Get)
			admin.POST("/refunds/:id/approve", refundLimit, c.RefundHandler.Approve)
			admin.POST("/refunds/:id/reject", refundLimit, c.RefundHandler.Reject)
			admin.POST("/refunds/:id/settle", refundLimit, c.RefundHandler.Settle)
			admin.POST("/refunds/bulk-approve", bulkLimit, c.RefundHandler.BulkApprove)
			admin.POST("/refunds/bulk-reject", bulkLimit, c.RefundHandler.BulkReject)
		}
	}
}
