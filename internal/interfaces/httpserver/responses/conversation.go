package responses

import (
	"encoding/base64"
	"time"

	"genai-console/internal/domain/conversation"
)

// ImageResponse is one inline image with its payload base64 encoded.
type ImageResponse struct {
	Data          string `json:"data"`
	MimeType      string `json:"mimeType"`
	ProvenanceTag string `json:"provenanceTag,omitempty"`
}

// MessageResponse is one transcript entry.
type MessageResponse struct {
	ID        string          `json:"id,omitempty"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Thinking  string          `json:"thinking,omitempty"`
	Images    []ImageResponse `json:"images,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConversationResponse is one full conversation document.
type ConversationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	Messages  []MessageResponse `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ConversationSummaryResponse omits messages for listings.
type ConversationSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Messages  int       `json:"message_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationResponse converts a domain conversation.
func NewConversationResponse(conv *conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:        conv.PublicID,
		Title:     conv.Title,
		Messages:  make([]MessageResponse, 0, len(conv.Messages)),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	for i := range conv.Messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(&conv.Messages[i]))
	}
	return resp
}

// NewMessageResponse converts a domain message.
func NewMessageResponse(msg *conversation.Message) MessageResponse {
	resp := MessageResponse{
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Thinking:  msg.Thinking,
		CreatedAt: msg.CreatedAt,
	}
	for _, img := range msg.Images {
		resp.Images = append(resp.Images, ImageResponse{
			Data:          base64.StdEncoding.EncodeToString(img.Data),
			MimeType:      img.MimeType,
			ProvenanceTag: img.ProvenanceTag,
		})
	}
	return resp
}

// NewConversationSummaryResponse converts a domain conversation for listings.
func NewConversationSummaryResponse(conv *conversation.Conversation) ConversationSummaryResponse {
	return ConversationSummaryResponse{
		ID:        conv.PublicID,
		Title:     conv.Title,
		Messages:  len(conv.Messages),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}
