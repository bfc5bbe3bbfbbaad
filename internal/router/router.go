package router

import (
	"github.com/gin-gonic/gin"
	"github.com/mjlee/confirmail-backend/config"
	"github.com/mjlee/confirmail-backend/internal/app/controller"
	"github.com/mjlee/confirmail-backend/internal/errors"
	"github.com/mjlee/confirmail-backend/internal/middleware"
)

type Router struct {
	confirmationController *controller.ConfirmationController
	adminController        *controller.AdminController
	authMiddleware         *middleware.AuthMiddleware
	config                 *config.Config
}

func NewRouter(
	confirmationController *controller.ConfirmationController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		confirmationController: confirmationController,
		adminController:        adminController,
		authMiddleware:         authMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.HandleMethodNotAllowed = true
	router.NoMethod(errors.MethodNotAllowed)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Confirmation API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		confirmations := v1.Group("/confirmations")
		{
			confirmations.POST("",
				middleware.IPThrottle(r.config.Confirmation.IPRequestsPerMin),
				r.confirmationController.Issue,
			)
			confirmations.GET("/verify", r.confirmationController.Verify)
			confirmations.POST("/verify", r.confirmationController.Verify)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireAdmin())
		{
			admin.GET("/requests/:id", r.adminController.GetRequest)
			admin.GET("/requests/:id/logs", r.adminController.GetRequestLogs)
			admin.GET("/logs", r.adminController.GetLogs)
			admin.POST("/requests/:id/cancel", r.adminController.CancelRequest)
			admin.GET("/metrics", r.adminController.GetMetrics)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
