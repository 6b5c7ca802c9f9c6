package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/tollgate/core"
	"github.com/layer-3/tollgate/internal/logger"
	"github.com/layer-3/tollgate/service"
	"github.com/rs/zerolog"
)

// SetupRouter sets up the Gin router. Every route outside openPaths passes the authentication gate.
func SetupRouter(authService *service.AuthService, openPaths []string, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinRequests(log))
	router.Use(AuthMiddleware(authService, openPaths))

	// Create handlers
	handlers := NewAuthHandlers(authService)

	// Auth routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
		api.GET("/users/:id", RequirePolicy(core.SelfOrAdmin, OwnerParam("id")), handlers.User)
		api.GET("/admin/sessions/:tokenId", RequirePolicy(core.AdminOnly, nil), handlers.Session)
	}

	return router
}
