package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-backend/internal/shared/middleware"
	"storefront-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	router.GET("/health", healthHandler(c))
	router.GET("/ready", readyHandler(c))

	v1 := router.Group("/api/v1")
	{
		setupCheckoutRoutes(v1, c)
		setupPaymentRoutes(v1, c)
		setupOrderRoutes(v1, c)
		setupWebhookRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

func setupCheckoutRoutes(rg *gin.RouterGroup, c *container.Container) {
	checkout := rg.Group("/checkout")
	{
		checkout.POST("/session", c.CheckoutHandler.CreateSession)
		checkout.GET("/session/:sessionId", c.CheckoutHandler.GetSession)
	}
}

func setupPaymentRoutes(rg *gin.RouterGroup, c *container.Container) {
	payment := rg.Group("/payment")
	{
		payment.POST("/initiate", c.PaymentHandler.InitiatePayment)
	}
}

func setupOrderRoutes(rg *gin.RouterGroup, c *container.Container) {
	orders := rg.Group("/orders")
	{
		// Redirect-callback lookup stays unauthenticated: the shopper
		// lands here from the gateway before any session exists.
		orders.GET("/by-txn/:txnId", c.OrderHandler.GetByTxn)

		authed := orders.Group("")
		authed.Use(middleware.AuthMiddleware(c.JWTManager))
		{
			authed.GET("", c.OrderHandler.List)
			authed.GET("/:orderId", c.OrderHandler.Get)
		}
	}
}

func setupWebhookRoutes(rg *gin.RouterGroup, c *container.Container) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/:provider", c.WebhookHandler.Receive)
	}
}

func setupAdminRoutes(rg *gin.RouterGroup, c *container.Container) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.GET("/webhooks/dlq", c.WebhookHandler.ListDeadLetters)
		admin.POST("/webhooks/dlq/:id/retry", c.WebhookHandler.RetryDeadLetter)
	}
}

func healthHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": c.Config.App.Name,
			"version": c.Config.App.Version,
		})
	}
}

// readyHandler reports whether the service can actually take traffic:
// the database must answer, Redis is advisory.
func readyHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}

		redisOK := c.Redis.HealthCheck(checkCtx) == nil

		ctx.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"redis":  redisOK,
		})
	}
}
