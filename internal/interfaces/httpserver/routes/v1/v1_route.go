package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"genai-console/internal/config"
	"genai-console/internal/interfaces/httpserver/routes/v1/chat"
	"genai-console/internal/interfaces/httpserver/routes/v1/conversation"
	"genai-console/internal/interfaces/httpserver/routes/v1/model"
)

type V1Route struct {
	model        *model.ModelRoute
	chat         *chat.ChatRoute
	conversation *conversation.ConversationRoute
}

func NewV1Route(
	model *model.ModelRoute,
	chat *chat.ChatRoute,
	conversation *conversation.ConversationRoute,
) *V1Route {
	return &V1Route{
		model,
		chat,
		conversation,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)

	v1Route.model.RegisterRouter(v1Router)
	v1Route.chat.RegisterRouter(v1Router)
	v1Route.conversation.RegisterRouter(v1Router)
}

// GetVersion returns the running build version.
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": config.Version})
}
