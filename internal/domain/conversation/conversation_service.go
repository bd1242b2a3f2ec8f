package conversation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"genai-console/internal/infrastructure/metrics"
	"genai-console/internal/utils/idgen"
	"genai-console/internal/utils/platformerrors"
)

// Service owns transcript lifecycle and the storage budget. All writes go
// through it so budget enforcement runs after every mutation.
type Service struct {
	repo        Repository
	budgetBytes int64
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, budgetBytes int64, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		budgetBytes: budgetBytes,
		logger:      logger.With().Str("component", "conversation_service").Logger(),
		now:         time.Now,
	}
}

// List returns all conversations of the user, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]*Conversation, error) {
	convs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "list conversations", err)
	}
	return convs, nil
}

// Get returns one conversation by public ID.
func (s *Service) Get(ctx context.Context, userID, publicID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, userID, publicID)
	if errors.Is(err, ErrNotFound) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "conversation not found", err)
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "load conversation", err)
	}
	return conv, nil
}

// Create starts a new empty conversation.
func (s *Service) Create(ctx context.Context, userID, title string) (*Conversation, error) {
	publicID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "generate conversation id", err)
	}
	now := s.now().UTC()
	return &Conversation{
		PublicID:  publicID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Put stores the full conversation document, replacing any previous version.
// The update timestamp is bumped, a missing title is derived from the first
// user message, and the budget is enforced afterwards.
func (s *Service) Put(ctx context.Context, userID string, conv *Conversation) error {
	conv.UserID = userID
	if conv.PublicID == "" {
		created, err := s.Create(ctx, userID, conv.Title)
		if err != nil {
			return err
		}
		conv.PublicID = created.PublicID
		conv.CreatedAt = created.CreatedAt
	}
	s.touch(conv)
	if conv.Title == "" {
		conv.Title = DeriveTitle(conv.Messages)
	}

	if err := s.repo.Upsert(ctx, conv); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "store conversation", err)
	}
	_, err := s.EnforceBudget(ctx, userID)
	return err
}

// AppendTurn appends the given messages to a conversation and stores it. A
// missing conversation ID starts a new conversation.
func (s *Service) AppendTurn(ctx context.Context, userID, publicID string, msgs ...Message) (*Conversation, error) {
	var conv *Conversation
	if publicID == "" {
		var err error
		conv, err = s.Create(ctx, userID, "")
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		conv, err = s.Get(ctx, userID, publicID)
		if err != nil {
			return nil, err
		}
	}

	var assigned []Message
	for _, m := range msgs {
		if m.ID == "" {
			id, err := idgen.GenerateSecureID("msg", 16)
			if err != nil {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
					platformerrors.ErrorTypeInternal, "generate message id", err)
			}
			m.ID = id
		}
		assigned = append(assigned, m)
	}
	conv.Messages = append(conv.Messages, assigned...)

	if err := s.Put(ctx, userID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// EditMessage replaces the content of the user message at index and discards
// every later message, preparing the transcript for regeneration. The edit
// and the truncation are one atomic document replacement.
func (s *Service) EditMessage(ctx context.Context, userID, publicID string, index int, content string, images []Image) (*Conversation, error) {
	conv, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(conv.Messages) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message index out of range", nil)
	}
	if conv.Messages[index].Role != RoleUser {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "only user messages can be edited", nil)
	}

	conv.Messages = conv.Messages[:index+1]
	msg := &conv.Messages[index]
	msg.Content = content
	if images != nil {
		msg.Images = images
	}

	if err := s.Put(ctx, userID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Delete removes one conversation.
func (s *Service) Delete(ctx context.Context, userID, publicID string) error {
	err := s.repo.Delete(ctx, userID, publicID)
	if errors.Is(err, ErrNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "conversation not found", err)
	}
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "delete conversation", err)
	}
	return nil
}

// SaveAll reconciles the stored set against the given snapshot: absent
// conversations are deleted, present ones replaced. When storing fails, a
// progressively smaller snapshot is retried, preferring the most recently
// updated conversations, so a partial save beats losing everything.
func (s *Service) SaveAll(ctx context.Context, userID string, convs []*Conversation) error {
	keep := make(map[string]bool, len(convs))
	for _, c := range convs {
		if c.PublicID != "" {
			keep[c.PublicID] = true
		}
	}

	existing, err := s.repo.SizesByUser(ctx, userID)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "list stored conversations", err)
	}
	for _, rec := range existing {
		if keep[rec.PublicID] {
			continue
		}
		if err := s.repo.Delete(ctx, userID, rec.PublicID); err != nil && !errors.Is(err, ErrNotFound) {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeDatabase, "reconcile deleted conversation", err)
		}
	}

	attempt := make([]*Conversation, len(convs))
	copy(attempt, convs)
	sort.SliceStable(attempt, func(i, j int) bool {
		return attempt[i].UpdatedAt.After(attempt[j].UpdatedAt)
	})

	var lastErr error
	for len(attempt) > 0 {
		lastErr = s.storeAll(ctx, userID, attempt)
		if lastErr == nil {
			_, err := s.EnforceBudget(ctx, userID)
			return err
		}
		s.logger.Warn().Err(lastErr).Int("count", len(attempt)).
			Msg("save-all failed, retrying with smaller snapshot")
		attempt = attempt[:len(attempt)/2]
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain,
		platformerrors.ErrorTypeDatabase, "save conversations", lastErr)
}

func (s *Service) storeAll(ctx context.Context, userID string, convs []*Conversation) error {
	for _, conv := range convs {
		conv.UserID = userID
		if conv.Title == "" {
			conv.Title = DeriveTitle(conv.Messages)
		}
		if conv.UpdatedAt.IsZero() {
			s.touch(conv)
		}
		if err := s.repo.Upsert(ctx, conv); err != nil {
			return err
		}
	}
	return nil
}

// EnforceBudget evicts whole conversations, oldest update first, until the
// user's stored footprint fits the budget. It returns the number evicted.
func (s *Service) EnforceBudget(ctx context.Context, userID string) (int, error) {
	sizes, err := s.repo.SizesByUser(ctx, userID)
	if err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabase, "measure stored conversations", err)
	}

	var total int64
	for _, rec := range sizes {
		total += rec.SizeBytes
	}

	evicted := 0
	for _, rec := range sizes {
		if total <= s.budgetBytes {
			break
		}
		if err := s.repo.Delete(ctx, userID, rec.PublicID); err != nil && !errors.Is(err, ErrNotFound) {
			return evicted, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeDatabase, "evict conversation", err)
		}
		total -= rec.SizeBytes
		evicted++
		s.logger.Info().Str("conversation_id", rec.PublicID).
			Int64("size_bytes", rec.SizeBytes).Msg("evicted conversation over budget")
	}
	metrics.RecordEvictions(evicted)
	return evicted, nil
}

// touch bumps UpdatedAt, keeping it strictly monotonic for this document so
// eviction ordering stays stable even with coarse clocks.
func (s *Service) touch(conv *Conversation) {
	now := s.now().UTC()
	if !now.After(conv.UpdatedAt) {
		now = conv.UpdatedAt.Add(time.Nanosecond)
	}
	conv.UpdatedAt = now
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
}
