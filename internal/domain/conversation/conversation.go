package conversation

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories when no conversation matches.
var ErrNotFound = errors.New("conversation not found")

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is one inline image attached to a message. ProvenanceTag
// distinguishes final outputs from intermediate drafts kept for display.
type Image struct {
	Data          []byte `json:"data"`
	MimeType      string `json:"mimeType"`
	ProvenanceTag string `json:"provenanceTag,omitempty"`
}

const (
	ProvenanceFinal    = "final"
	ProvenanceThinking = "thinking"
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Images    []Image   `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEmpty reports whether the message carries no content of any kind.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && m.Thinking == "" && len(m.Images) == 0
}

// Conversation is a complete stored transcript. SizeBytes is maintained by
// the repository and reflects the serialized footprint used for budget
// accounting.
type Conversation struct {
	ID        uint      `json:"-"`
	PublicID  string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	SizeBytes int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordSize is the repository's budget-accounting view of one stored
// conversation.
type RecordSize struct {
	PublicID  string
	SizeBytes int64
	UpdatedAt time.Time
}

// Repository persists conversations. Upsert replaces the whole stored
// document atomically; partial in-place message updates are deliberately not
// part of the contract.
type Repository interface {
	Upsert(ctx context.Context, conv *Conversation) error
	FindByPublicID(ctx context.Context, userID, publicID string) (*Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*Conversation, error)
	Delete(ctx context.Context, userID, publicID string) error
	// SizesByUser returns size accounting for every stored conversation of
	// the user, ordered by UpdatedAt ascending.
	SizesByUser(ctx context.Context, userID string) ([]RecordSize, error)
}

const (
	titleMaxLen  = 60
	titleTrailer = "..."
)

// DeriveTitle produces a display title from the first non-empty user message.
// Long prompts are cut at a word boundary where one exists within the limit.
func DeriveTitle(messages []Message) string {
	for i := range messages {
		m := &messages[i]
		if m.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			if len(m.Images) > 0 {
				return "Image conversation"
			}
			continue
		}
		if len(text) <= titleMaxLen {
			return text
		}
		cut := text[:titleMaxLen]
		if idx := strings.LastIndex(cut, " "); idx > titleMaxLen/2 {
			cut = cut[:idx]
		}
		return cut + titleTrailer
	}
	return "New conversation"
}
