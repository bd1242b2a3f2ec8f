package dbschema

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
}

// Conversation stores one transcript as a whole JSON document. SizeBytes is
// the serialized payload length, kept as a column so budget accounting never
// has to load the documents themselves.
type Conversation struct {
	BaseModel
	PublicID  string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID    string         `gorm:"type:varchar(128);index:idx_conversation_user_updated;not null"`
	Title     string         `gorm:"type:varchar(256)"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	SizeBytes int64          `gorm:"not null;default:0;index:idx_conversation_user_updated"`
}

// NewSchemaConversation creates a database schema from a domain conversation
func NewSchemaConversation(c *conversation.Conversation) (*Conversation, error) {
	payload, err := json.Marshal(c.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation payload: %w", err)
	}
	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID:  c.PublicID,
		UserID:    c.UserID,
		Title:     c.Title,
		Payload:   datatypes.JSON(payload),
		SizeBytes: int64(len(payload)),
	}, nil
}

// EtoD converts database schema to domain conversation (Entity to Domain)
func (c *Conversation) EtoD() (*conversation.Conversation, error) {
	var messages []conversation.Message
	if len(c.Payload) > 0 {
		if err := json.Unmarshal(c.Payload, &messages); err != nil {
			return nil, fmt.Errorf("unmarshal conversation payload: %w", err)
		}
	}
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		UserID:    c.UserID,
		Title:     c.Title,
		Messages:  messages,
		SizeBytes: c.SizeBytes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
