package chat

import (
	"github.com/gin-gonic/gin"

	"genai-console/internal/interfaces/httpserver/handlers/chathandler"
)

// ChatRoute handles generation streaming routes
type ChatRoute struct {
	chatHandler *chathandler.ChatHandler
}

// NewChatRoute creates a new chat route
func NewChatRoute(chatHandler *chathandler.ChatHandler) *ChatRoute {
	return &ChatRoute{chatHandler: chatHandler}
}

// RegisterRouter registers chat routes
func (r *ChatRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/chat/stream", r.chatHandler.Stream)
}
