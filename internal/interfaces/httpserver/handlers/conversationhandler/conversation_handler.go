package conversationhandler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/interfaces/httpserver/middlewares"
	"genai-console/internal/interfaces/httpserver/requests"
	"genai-console/internal/interfaces/httpserver/responses"
)

// ConversationHandler serves transcript CRUD for the authenticated user.
type ConversationHandler struct {
	conversations *conversation.Service
	logger        zerolog.Logger
}

func NewConversationHandler(conversations *conversation.Service, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// List returns conversation summaries, most recently updated first.
func (h *ConversationHandler) List(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	convs, err := h.conversations.List(reqCtx.Request.Context(), principal.ID)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list conversations")
		return
	}

	out := make([]responses.ConversationSummaryResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, responses.NewConversationSummaryResponse(conv))
	}
	reqCtx.JSON(http.StatusOK, responses.ListResponse[responses.ConversationSummaryResponse]{
		Object: "list",
		Data:   out,
	})
}

// Get returns one full conversation document.
func (h *ConversationHandler) Get(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	conv, err := h.conversations.Get(reqCtx.Request.Context(), principal.ID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "conversation not found")
		return
	}
	reqCtx.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// Put stores one full conversation document, replacing any previous version.
func (h *ConversationHandler) Put(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	var req requests.ConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid conversation")
		return
	}
	req.ID = reqCtx.Param("id")

	conv, err := req.ToDomain()
	if err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid conversation")
		return
	}

	if err := h.conversations.Put(reqCtx.Request.Context(), principal.ID, conv); err != nil {
		responses.HandleError(reqCtx, err, "failed to store conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}

// Delete removes one conversation.
func (h *ConversationHandler) Delete(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	if err := h.conversations.Delete(reqCtx.Request.Context(), principal.ID, reqCtx.Param("id")); err != nil {
		responses.HandleError(reqCtx, err, "failed to delete conversation")
		return
	}
	reqCtx.Status(http.StatusNoContent)
}

// SaveAll reconciles the stored set against the client's full snapshot.
func (h *ConversationHandler) SaveAll(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	var req requests.SaveAllRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid snapshot")
		return
	}

	convs := make([]*conversation.Conversation, 0, len(req.Conversations))
	for i := range req.Conversations {
		conv, err := req.Conversations[i].ToDomain()
		if err != nil {
			responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid snapshot")
			return
		}
		convs = append(convs, conv)
	}

	if err := h.conversations.SaveAll(reqCtx.Request.Context(), principal.ID, convs); err != nil {
		responses.HandleError(reqCtx, err, "failed to save conversations")
		return
	}
	reqCtx.Status(http.StatusNoContent)
}

// EditMessage rewrites one user message and truncates the transcript after
// it, preparing the conversation for regeneration.
func (h *ConversationHandler) EditMessage(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	index, err := strconv.Atoi(reqCtx.Param("index"))
	if err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid message index")
		return
	}

	var req requests.EditMessageRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid edit request")
		return
	}

	var images []conversation.Image
	for i := range req.Images {
		att, err := req.Images[i].Decode()
		if err != nil {
			responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid edit request")
			return
		}
		images = append(images, conversation.Image{Data: att.Data, MimeType: att.MimeType})
	}

	conv, err := h.conversations.EditMessage(reqCtx.Request.Context(), principal.ID,
		reqCtx.Param("id"), index, req.Content, images)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to edit message")
		return
	}
	reqCtx.JSON(http.StatusOK, responses.NewConversationResponse(conv))
}
