package model

import (
	"github.com/gin-gonic/gin"

	"genai-console/internal/interfaces/httpserver/handlers/modelhandler"
)

// ModelRoute handles model catalog routes
type ModelRoute struct {
	modelHandler *modelhandler.ModelHandler
}

// NewModelRoute creates a new model route
func NewModelRoute(modelHandler *modelhandler.ModelHandler) *ModelRoute {
	return &ModelRoute{modelHandler: modelHandler}
}

// RegisterRouter registers model routes
func (r *ModelRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/models", r.modelHandler.List)
}
