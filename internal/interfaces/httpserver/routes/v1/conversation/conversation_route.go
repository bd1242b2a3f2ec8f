package conversation

import (
	"github.com/gin-gonic/gin"

	"genai-console/internal/interfaces/httpserver/handlers/conversationhandler"
)

// ConversationRoute handles conversation persistence routes
type ConversationRoute struct {
	conversationHandler *conversationhandler.ConversationHandler
}

// NewConversationRoute creates a new conversation route
func NewConversationRoute(conversationHandler *conversationhandler.ConversationHandler) *ConversationRoute {
	return &ConversationRoute{conversationHandler: conversationHandler}
}

// RegisterRouter registers conversation routes
func (r *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", r.conversationHandler.List)
	conversations.PUT("", r.conversationHandler.SaveAll)
	conversations.GET("/:id", r.conversationHandler.Get)
	conversations.PUT("/:id", r.conversationHandler.Put)
	conversations.DELETE("/:id", r.conversationHandler.Delete)
	conversations.POST("/:id/messages/:index/edit", r.conversationHandler.EditMessage)
}
