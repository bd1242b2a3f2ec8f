package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genai-console/internal/utils/platformerrors"
)

// fakeRepo is an in-memory Repository with the same size accounting the real
// store performs on its serialized documents.
type fakeRepo struct {
	mu        sync.Mutex
	convs     map[string]*Conversation
	failUpser int // fail the next N upserts
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{convs: map[string]*Conversation{}}
}

func docSize(conv *Conversation) int64 {
	raw, _ := json.Marshal(conv.Messages)
	return int64(len(raw))
}

func (r *fakeRepo) Upsert(_ context.Context, conv *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpser > 0 {
		r.failUpser--
		return errors.New("storage unavailable")
	}
	stored := *conv
	stored.Messages = append([]Message(nil), conv.Messages...)
	stored.SizeBytes = docSize(conv)
	r.convs[conv.PublicID] = &stored
	return nil
}

func (r *fakeRepo) FindByPublicID(_ context.Context, userID, publicID string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[publicID]
	if !ok || conv.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *conv
	cp.Messages = append([]Message(nil), conv.Messages...)
	return &cp, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string) ([]*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Conversation
	for _, conv := range r.convs {
		if conv.UserID == userID {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, userID, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[publicID]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	delete(r.convs, publicID)
	return nil
}

func (r *fakeRepo) SizesByUser(_ context.Context, userID string) ([]RecordSize, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordSize
	for _, conv := range r.convs {
		if conv.UserID == userID {
			out = append(out, RecordSize{PublicID: conv.PublicID, SizeBytes: conv.SizeBytes, UpdatedAt: conv.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func newTestService(repo Repository, budget int64) *Service {
	return NewService(repo, budget, zerolog.Nop())
}

func userMsg(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

func assistantMsg(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

func TestService_AppendTurnCreatesConversation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	conv, err := svc.AppendTurn(ctx, "admin", "", userMsg("What is the airspeed of an unladen swallow?"), assistantMsg("African or European?"))
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if !strings.HasPrefix(conv.PublicID, "conv_") {
		t.Errorf("public id = %q, want conv_ prefix", conv.PublicID)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	for i, m := range conv.Messages {
		if !strings.HasPrefix(m.ID, "msg_") {
			t.Errorf("message[%d] id = %q, want msg_ prefix", i, m.ID)
		}
	}
	if conv.Title != "What is the airspeed of an unladen swallow?" {
		t.Errorf("title = %q, want first user message", conv.Title)
	}

	stored, err := svc.Get(ctx, "admin", conv.PublicID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Messages) != 2 {
		t.Errorf("stored %d messages, want 2", len(stored.Messages))
	}
}

func TestService_TitleDerivation(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{
			name:     "short prompt verbatim",
			messages: []Message{userMsg("Hello there")},
			want:     "Hello there",
		},
		{
			name: "long prompt cut at word boundary",
			messages: []Message{userMsg(
				"Explain the difference between optimistic and pessimistic locking in database systems please")},
			want: "Explain the difference between optimistic and pessimistic...",
		},
		{
			name:     "assistant messages skipped",
			messages: []Message{assistantMsg("ignored"), userMsg("Real question")},
			want:     "Real question",
		},
		{
			name: "image-only prompt",
			messages: []Message{{Role: RoleUser, Images: []Image{
				{Data: []byte{1}, MimeType: "image/png"}}}},
			want: "Image conversation",
		},
		{
			name:     "no user message",
			messages: []Message{assistantMsg("hi")},
			want:     "New conversation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.messages)
			if got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
			if len(got) > titleMaxLen+len(titleTrailer) {
				t.Errorf("title length %d exceeds limit", len(got))
			}
		})
	}
}

func TestService_BudgetEviction(t *testing.T) {
	repo := newFakeRepo()
	// Each conversation below serializes to roughly 350 bytes, so the
	// budget fits two of the three.
	svc := newTestService(repo, 800)
	ctx := context.Background()

	padding := strings.Repeat("x", 250)
	var ids []string
	for i := 0; i < 3; i++ {
		conv, err := svc.AppendTurn(ctx, "admin", "", userMsg(fmt.Sprintf("q%d %s", i, padding)))
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
		ids = append(ids, conv.PublicID)
	}

	// The oldest conversation must be the one evicted.
	if _, err := svc.Get(ctx, "admin", ids[0]); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("oldest conversation error = %v, want not found", err)
	}
	for _, id := range ids[1:] {
		if _, err := svc.Get(ctx, "admin", id); err != nil {
			t.Errorf("recent conversation %s unexpectedly evicted: %v", id, err)
		}
	}

	// Surviving set must fit the budget.
	sizes, err := repo.SizesByUser(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, rec := range sizes {
		total += rec.SizeBytes
	}
	if total > 800 {
		t.Errorf("stored footprint %d exceeds budget", total)
	}
}

func TestService_EditMessageTruncates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	conv, err := svc.AppendTurn(ctx, "admin", "",
		userMsg("first"), assistantMsg("answer one"),
		userMsg("second"), assistantMsg("answer two"))
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	edited, err := svc.EditMessage(ctx, "admin", conv.PublicID, 2, "second, revised", nil)
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if len(edited.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(edited.Messages))
	}
	if edited.Messages[2].Content != "second, revised" {
		t.Errorf("edited content = %q", edited.Messages[2].Content)
	}

	// The stored document reflects the edit and the truncation together.
	stored, err := svc.Get(ctx, "admin", conv.PublicID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Messages) != 3 {
		t.Errorf("stored %d messages, want 3", len(stored.Messages))
	}
}

func TestService_EditMessageValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	conv, err := svc.AppendTurn(ctx, "admin", "", userMsg("q"), assistantMsg("a"))
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	if _, err := svc.EditMessage(ctx, "admin", conv.PublicID, 1, "x", nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("editing assistant message error = %v, want validation error", err)
	}
	if _, err := svc.EditMessage(ctx, "admin", conv.PublicID, 5, "x", nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("out of range index error = %v, want validation error", err)
	}
	if _, err := svc.EditMessage(ctx, "admin", "conv_missing", 0, "x", nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("missing conversation error = %v, want not found", err)
	}

	stored, _ := svc.Get(ctx, "admin", conv.PublicID)
	if len(stored.Messages) != 2 {
		t.Errorf("failed edits must not change the document, got %d messages", len(stored.Messages))
	}
}

func TestService_SaveAllReconciles(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	kept, err := svc.AppendTurn(ctx, "admin", "", userMsg("keep me"))
	if err != nil {
		t.Fatal(err)
	}
	dropped, err := svc.AppendTurn(ctx, "admin", "", userMsg("drop me"))
	if err != nil {
		t.Fatal(err)
	}

	kept.Messages = append(kept.Messages, assistantMsg("updated"))
	added := &Conversation{PublicID: "conv_clientside000000", Messages: []Message{userMsg("new from client")}, UpdatedAt: time.Now().UTC()}

	if err := svc.SaveAll(ctx, "admin", []*Conversation{kept, added}); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	if _, err := svc.Get(ctx, "admin", dropped.PublicID); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("absent conversation error = %v, want not found", err)
	}
	got, err := svc.Get(ctx, "admin", kept.PublicID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 2 {
		t.Errorf("kept conversation has %d messages, want 2", len(got.Messages))
	}
	if _, err := svc.Get(ctx, "admin", added.PublicID); err != nil {
		t.Errorf("added conversation missing: %v", err)
	}
}

func TestService_SaveAllRetriesSmaller(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var convs []*Conversation
	for i := 0; i < 4; i++ {
		convs = append(convs, &Conversation{
			PublicID:  fmt.Sprintf("conv_%016d", i),
			Messages:  []Message{userMsg(fmt.Sprintf("q%d", i))},
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	// First upsert fails, so the full snapshot cannot be stored; the retry
	// with the newest half must succeed.
	repo.failUpser = 1
	if err := svc.SaveAll(ctx, "admin", convs); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	stored, err := repo.ListByUser(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d conversations, want newest 2", len(stored))
	}
	for _, conv := range stored {
		if conv.PublicID != "conv_0000000000000003" && conv.PublicID != "conv_0000000000000002" {
			t.Errorf("unexpected survivor %s, want the most recently updated", conv.PublicID)
		}
	}
}

func TestService_SaveAllGivesUpEventually(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, 1<<20)
	ctx := context.Background()

	repo.failUpser = 100
	err := svc.SaveAll(ctx, "admin", []*Conversation{
		{PublicID: "conv_a000000000000000", Messages: []Message{userMsg("q")}, UpdatedAt: time.Now().UTC()},
	})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabase) {
		t.Fatalf("SaveAll() error = %v, want database error", err)
	}
}

func TestService_DeleteMissing(t *testing.T) {
	svc := newTestService(newFakeRepo(), 1<<20)
	err := svc.Delete(context.Background(), "admin", "conv_missing")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("Delete() error = %v, want not found", err)
	}
}
