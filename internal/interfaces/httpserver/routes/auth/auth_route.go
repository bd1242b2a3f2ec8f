package auth

import (
	"github.com/gin-gonic/gin"

	"genai-console/internal/interfaces/httpserver/handlers/authhandler"
)

// AuthRoute handles authentication routes
type AuthRoute struct {
	authHandler *authhandler.AuthHandler
}

// NewAuthRoute creates a new auth route
func NewAuthRoute(authHandler *authhandler.AuthHandler) *AuthRoute {
	return &AuthRoute{authHandler: authHandler}
}

// RegisterRouter registers auth routes
func (a *AuthRoute) RegisterRouter(router gin.IRouter, protectedRouter gin.IRouter) {
	// Public routes
	router.POST("/v1/auth/login", a.authHandler.Login)

	// Protected routes (require authentication)
	protectedRouter.GET("/v1/auth/me", a.authHandler.Me)
}
