package requests

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/domain/generation"
)

var validate = validator.New()

// LoginRequest carries console credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AttachmentRequest is one base64-encoded inline file.
type AttachmentRequest struct {
	Data     string `json:"data" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
}

func (a *AttachmentRequest) Decode() (generation.Attachment, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return generation.Attachment{}, fmt.Errorf("attachment is not valid base64: %w", err)
	}
	return generation.Attachment{Data: raw, MimeType: a.MimeType}, nil
}

// MessageRequest is one transcript message as sent by the client.
type MessageRequest struct {
	ID        string              `json:"id"`
	Role      string              `json:"role" binding:"required,oneof=user assistant"`
	Content   string              `json:"content"`
	Thinking  string              `json:"thinking"`
	Images    []AttachmentRequest `json:"images" binding:"omitempty,dive"`
	CreatedAt time.Time           `json:"created_at"`
}

func (m *MessageRequest) ToDomain() (conversation.Message, error) {
	msg := conversation.Message{
		ID:        m.ID,
		Role:      conversation.Role(m.Role),
		Content:   m.Content,
		Thinking:  m.Thinking,
		CreatedAt: m.CreatedAt,
	}
	for _, img := range m.Images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return conversation.Message{}, fmt.Errorf("message image is not valid base64: %w", err)
		}
		msg.Images = append(msg.Images, conversation.Image{Data: raw, MimeType: img.MimeType})
	}
	return msg, nil
}

// ChatStreamRequest is one generation request.
type ChatStreamRequest struct {
	Prompt            string              `json:"prompt"`
	Model             string              `json:"model"`
	ConversationID    string              `json:"conversation_id"`
	SystemInstruction string              `json:"system_instruction"`
	Temperature       *float64            `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	ThinkingBudget    *int                `json:"thinking_budget" binding:"omitempty,gte=0"`
	ImageAspectRatio  string              `json:"image_aspect_ratio"`
	ImageResolution   string              `json:"image_resolution"`
	Modalities        []string            `json:"modalities" binding:"omitempty,dive,oneof=text image"`
	History           []MessageRequest    `json:"history" binding:"omitempty,dive"`
	Attachments       []AttachmentRequest `json:"attachments" binding:"omitempty,dive"`
}

// Validate applies the rules gin's binding tags cannot express.
func (r *ChatStreamRequest) Validate() error {
	if r.ImageAspectRatio != "" {
		if err := validate.Var(r.ImageAspectRatio, "oneof=1:1 16:9 9:16 4:3 3:4"); err != nil {
			return fmt.Errorf("unsupported image aspect ratio %q", r.ImageAspectRatio)
		}
	}
	if r.ImageResolution != "" {
		if err := validate.Var(r.ImageResolution, "oneof=512 1024 2048"); err != nil {
			return fmt.Errorf("unsupported image resolution %q", r.ImageResolution)
		}
	}
	return nil
}

// ToInput converts the request into a relay input.
func (r *ChatStreamRequest) ToInput() (*generation.Input, error) {
	input := &generation.Input{
		Prompt:         r.Prompt,
		Model:          r.Model,
		ConversationID: r.ConversationID,
		Options: generation.Options{
			SystemInstruction: r.SystemInstruction,
			Temperature:       r.Temperature,
			ThinkingBudget:    r.ThinkingBudget,
			ImageAspectRatio:  r.ImageAspectRatio,
			ImageResolution:   r.ImageResolution,
			Modalities:        r.Modalities,
		},
	}
	for i := range r.History {
		msg, err := r.History[i].ToDomain()
		if err != nil {
			return nil, err
		}
		input.History = append(input.History, msg)
	}
	for i := range r.Attachments {
		att, err := r.Attachments[i].Decode()
		if err != nil {
			return nil, err
		}
		input.Attachments = append(input.Attachments, att)
	}
	return input, nil
}

// ConversationRequest is one full conversation document as sent by the client.
type ConversationRequest struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Messages  []MessageRequest `json:"messages" binding:"omitempty,dive"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (r *ConversationRequest) ToDomain() (*conversation.Conversation, error) {
	conv := &conversation.Conversation{
		PublicID:  r.ID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for i := range r.Messages {
		msg, err := r.Messages[i].ToDomain()
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

// SaveAllRequest replaces the whole stored conversation set.
type SaveAllRequest struct {
	Conversations []ConversationRequest `json:"conversations" binding:"required,dive"`
}

// EditMessageRequest rewrites one user message in place.
type EditMessageRequest struct {
	Content string              `json:"content" binding:"required"`
	Images  []AttachmentRequest `json:"images" binding:"omitempty,dive"`
}
