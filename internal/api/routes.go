package api

import (
	"github.com/gin-gonic/gin"
)

// RouteConfig carries the settings the router needs
type RouteConfig struct {
	JWTSecret    string
	JWTIssuer    string
	RateLimitRPS float64
}

func SetupRoutes(cfg RouteConfig, handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, max(1, int(cfg.RateLimitRPS*2)))

	router.Use(RequestMetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/runs", handler.Compute)
		api.GET("/runs/:runId", handler.GetRun)
		api.GET("/runs/:runId/comparisons", handler.GetComparisons)
	}

	return router
}
