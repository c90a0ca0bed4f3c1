package http

import (
	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/http/middleware"
)

// SetupRouter builds the HTTP surface. The webhook route sits outside the
// visitor and rate limit chain: provider deliveries carry no cookies and are
// authenticated by signature, not by identity.
func SetupRouter(c *Container) *gin.Engine {
	if c.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(c.logger.Named("http")))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Provider-facing surface.
	api.POST("/billing/webhook", c.webhookHandler.HandleProviderEvent)

	// User-facing surface: identity first, then rate gating.
	app := api.Group("")
	app.Use(middleware.SessionAuth(c.sessionStore, &c.cfg.Auth.Session, c.logger.Named("auth")))
	app.Use(middleware.Visitor(&c.cfg.Auth, c.trackVisitorUseCase, c.logger.Named("visitor")))
	app.Use(middleware.RateLimit(c.rateLimiter, c.cfg.RateLimit, c.logger.Named("ratelimit")))

	app.GET("/plans", c.billingHandler.ListPlans)
	app.GET("/policy", c.policyHandler.GetPolicy)
	app.POST("/consult", c.consultHandler.Consult)

	billing := app.Group("/billing")
	billing.POST("/checkout", c.billingHandler.CreateCheckout)
	billing.POST("/checkout/complete", c.billingHandler.CompleteCheckout)
	billing.POST("/upgrade", middleware.RequireUser(), c.billingHandler.UpgradeCheckout)
	billing.POST("/portal", middleware.RequireUser(), c.billingHandler.CreatePortal)

	return router
}
