package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/garuda/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	// Create handlers
	handlers := NewAuthHandlers(authService)

	// Sign-in protocol routes
	siwe := router.Group("/siwe")
	{
		siwe.POST("/prepare", handlers.PrepareLogin)
		siwe.POST("/login", handlers.Login)
		siwe.POST("/delegation", handlers.GetDelegation)
		siwe.GET("/identity/:address", handlers.IdentityForAddress)
		siwe.GET("/address/:identity", handlers.AddressForIdentity)
	}

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
