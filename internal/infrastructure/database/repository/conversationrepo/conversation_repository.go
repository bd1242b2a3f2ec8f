package conversationrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/infrastructure/database/dbschema"
)

// ConversationRepository is the postgres-backed conversation store. Each
// conversation is one row holding the full transcript document, so replace
// semantics come for free from a single upsert.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

var _ conversation.Repository = (*ConversationRepository)(nil)

// Upsert atomically replaces the stored document for the conversation.
func (r *ConversationRepository) Upsert(ctx context.Context, conv *conversation.Conversation) error {
	row, err := dbschema.NewSchemaConversation(conv)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "public_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "title", "payload", "size_bytes", "updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return err
	}
	conv.ID = row.ID
	conv.SizeBytes = row.SizeBytes
	return nil
}

func (r *ConversationRepository) FindByPublicID(ctx context.Context, userID, publicID string) (*conversation.Conversation, error) {
	var row dbschema.Conversation
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.EtoD()
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	var rows []dbschema.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	convs := make([]*conversation.Conversation, 0, len(rows))
	for i := range rows {
		conv, err := rows[i].EtoD()
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (r *ConversationRepository) Delete(ctx context.Context, userID, publicID string) error {
	result := r.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		Delete(&dbschema.Conversation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return conversation.ErrNotFound
	}
	return nil
}

// SizesByUser returns budget accounting rows ordered oldest update first, the
// order eviction consumes them in.
func (r *ConversationRepository) SizesByUser(ctx context.Context, userID string) ([]conversation.RecordSize, error) {
	var recs []conversation.RecordSize
	err := r.db.WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Select("public_id", "size_bytes", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at ASC").
		Scan(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
