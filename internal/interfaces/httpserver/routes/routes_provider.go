package routes

import (
	"github.com/google/wire"

	"genai-console/internal/interfaces/httpserver/handlers/authhandler"
	"genai-console/internal/interfaces/httpserver/handlers/chathandler"
	"genai-console/internal/interfaces/httpserver/handlers/conversationhandler"
	"genai-console/internal/interfaces/httpserver/handlers/modelhandler"
	"genai-console/internal/interfaces/httpserver/routes/auth"
	v1 "genai-console/internal/interfaces/httpserver/routes/v1"
	"genai-console/internal/interfaces/httpserver/routes/v1/chat"
	"genai-console/internal/interfaces/httpserver/routes/v1/conversation"
	"genai-console/internal/interfaces/httpserver/routes/v1/model"
)

var RouteProvider = wire.NewSet(
	// Handlers
	authhandler.NewAuthHandler,
	chathandler.NewChatHandler,
	conversationhandler.NewConversationHandler,
	modelhandler.NewModelHandler,

	// Routes
	auth.NewAuthRoute,
	v1.NewV1Route,
	chat.NewChatRoute,
	conversation.NewConversationRoute,
	model.NewModelRoute,
)
