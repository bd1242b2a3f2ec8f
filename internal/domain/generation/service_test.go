package generation

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/domain/model"
	"genai-console/internal/stream"
	"genai-console/internal/utils/platformerrors"
)

// memRepo is a minimal in-memory conversation repository.
type memRepo struct {
	mu    sync.Mutex
	convs map[string]*conversation.Conversation
}

func newMemRepo() *memRepo {
	return &memRepo{convs: map[string]*conversation.Conversation{}}
}

func (r *memRepo) Upsert(_ context.Context, conv *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *conv
	cp.Messages = append([]conversation.Message(nil), conv.Messages...)
	r.convs[conv.PublicID] = &cp
	return nil
}

func (r *memRepo) FindByPublicID(_ context.Context, userID, publicID string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[publicID]
	if !ok || conv.UserID != userID {
		return nil, conversation.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *memRepo) ListByUser(_ context.Context, userID string) ([]*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Conversation
	for _, conv := range r.convs {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, userID, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[publicID]; !ok {
		return conversation.ErrNotFound
	}
	delete(r.convs, publicID)
	return nil
}

func (r *memRepo) SizesByUser(_ context.Context, userID string) ([]conversation.RecordSize, error) {
	return nil, nil
}

// fakeUpstream serves a canned stream body and records the request.
type fakeUpstream struct {
	body    string
	openErr error
	lastReq *UpstreamRequest
}

func (u *fakeUpstream) OpenStream(_ context.Context, req *UpstreamRequest) (io.ReadCloser, error) {
	u.lastReq = req
	if u.openErr != nil {
		return nil, u.openErr
	}
	return io.NopCloser(strings.NewReader(u.body)), nil
}

// captureSink records every relayed event.
type captureSink struct {
	events []*stream.Event
	err    error
}

func (s *captureSink) SendEvent(ev *stream.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func record(payload string) string {
	return "data: " + payload + "\n\n"
}

func newTestService(t *testing.T, upstream StreamOpener) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	convSvc := conversation.NewService(repo, 1<<30, zerolog.Nop())
	registry, err := model.NewRegistry("", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(upstream, convSvc, registry, nil, time.Minute, zerolog.Nop())
	return svc, repo
}

func TestService_GenerateRelaysAndPersists(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"text":"He"}`) + record(`{"text":"llo"}`) + record(`{"done":true}`)}
	svc, _ := newTestService(t, upstream)
	sink := &captureSink{}

	res, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "Say hello"}, sink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(sink.events) != 3 {
		t.Fatalf("relayed %d events, want 3", len(sink.events))
	}
	if sink.events[0].Text != "He" || sink.events[1].Text != "llo" {
		t.Errorf("relayed deltas = %q, %q", sink.events[0].Text, sink.events[1].Text)
	}
	if sink.events[2].Kind != stream.EventDone {
		t.Errorf("last event = %v, want done", sink.events[2].Kind)
	}

	if res.Message == nil || res.Message.Content != "Hello" {
		t.Fatalf("assembled message = %+v, want Hello", res.Message)
	}
	if res.Failure != nil {
		t.Errorf("failure = %+v, want none", res.Failure)
	}
	if !strings.HasPrefix(res.ConversationID, "conv_") {
		t.Errorf("conversation id = %q", res.ConversationID)
	}
}

func TestService_GenerateStoresTranscript(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"text":"Answer"}`) + record(`{"done":true}`)}
	svc, repo := newTestService(t, upstream)

	res, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "Question"}, &captureSink{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	conv, err := repo.FindByPublicID(context.Background(), "admin", res.ConversationID)
	if err != nil {
		t.Fatalf("stored conversation missing: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != conversation.RoleUser || conv.Messages[0].Content != "Question" {
		t.Errorf("user turn = %+v", conv.Messages[0])
	}
	if conv.Messages[1].Role != conversation.RoleAssistant || conv.Messages[1].Content != "Answer" {
		t.Errorf("assistant turn = %+v", conv.Messages[1])
	}
}

func TestService_GenerateContinuesConversation(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"text":"Second answer"}`) + record(`{"done":true}`)}
	svc, _ := newTestService(t, upstream)

	first := &fakeUpstream{body: record(`{"text":"First"}`) + record(`{"done":true}`)}
	svcFirst, repo := newTestService(t, first)
	res1, err := svcFirst.Generate(context.Background(), "admin", &Input{Prompt: "One"}, &captureSink{})
	if err != nil {
		t.Fatal(err)
	}

	svc.conversations = conversation.NewService(repo, 1<<30, zerolog.Nop())
	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "One"},
		{Role: conversation.RoleAssistant, Content: "First"},
	}
	res2, err := svc.Generate(context.Background(), "admin", &Input{
		Prompt:         "Two",
		ConversationID: res1.ConversationID,
		History:        history,
	}, &captureSink{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res2.ConversationID != res1.ConversationID {
		t.Errorf("conversation id changed: %q vs %q", res2.ConversationID, res1.ConversationID)
	}

	conv, _ := repo.FindByPublicID(context.Background(), "admin", res1.ConversationID)
	if len(conv.Messages) != 4 {
		t.Fatalf("stored %d messages, want 4", len(conv.Messages))
	}

	// History travels upstream with provider roles, oldest first.
	req := upstream.lastReq
	if len(req.Contents) != 3 {
		t.Fatalf("upstream contents = %d, want 3", len(req.Contents))
	}
	if req.Contents[0].Role != "user" || req.Contents[1].Role != "model" || req.Contents[2].Role != "user" {
		t.Errorf("roles = %s/%s/%s, want user/model/user",
			req.Contents[0].Role, req.Contents[1].Role, req.Contents[2].Role)
	}
}

func TestService_HistoryDropsEmptyMessages(t *testing.T) {
	contents := translateHistory([]conversation.Message{
		{Role: conversation.RoleUser, Content: "keep"},
		{Role: conversation.RoleAssistant, Content: "", Thinking: "only thinking"},
		{Role: conversation.RoleAssistant, Content: "also keep"},
	})
	if len(contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(contents))
	}
	if contents[1].Role != "model" || contents[1].Parts[0].Text != "also keep" {
		t.Errorf("contents[1] = %+v", contents[1])
	}
}

func TestService_ValidationRejectsBeforeUpstream(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"done":true}`)}
	svc, _ := newTestService(t, upstream)

	// The default catalog has no model without image input, so the
	// attachment rejection needs a catalog of its own.
	catalog := "models:\n  - id: text-only\n    name: Text Only\n"
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatal(err)
	}
	textRegistry, err := model.NewRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	textSvc := NewService(upstream, conversation.NewService(newMemRepo(), 1<<30, zerolog.Nop()),
		textRegistry, nil, time.Minute, zerolog.Nop())

	tests := []struct {
		name  string
		svc   *Service
		input *Input
	}{
		{"empty prompt", svc, &Input{Prompt: "   "}},
		{"unknown model", svc, &Input{Prompt: "hi", Model: "nonexistent"}},
		{"attachment to text-only model", textSvc, &Input{
			Prompt:      "hi",
			Model:       "text-only",
			Attachments: []Attachment{{Data: []byte{1}, MimeType: "application/pdf"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream.lastReq = nil
			_, err := tt.svc.Generate(context.Background(), "admin", tt.input, &captureSink{})
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
				t.Fatalf("Generate() error = %v, want validation error", err)
			}
			if upstream.lastReq != nil {
				t.Error("upstream was called despite validation failure")
			}
		})
	}
}

func TestService_CapabilityGating(t *testing.T) {
	budget := 2048
	temp := 0.7

	t.Run("thinking budget dropped for image model", func(t *testing.T) {
		upstream := &fakeUpstream{body: record(`{"text":"x"}`) + record(`{"done":true}`)}
		svc, _ := newTestService(t, upstream)
		_, err := svc.Generate(context.Background(), "admin", &Input{
			Prompt:  "draw a cat",
			Model:   "gemini-2.5-flash-image",
			Options: Options{ThinkingBudget: &budget, Temperature: &temp},
		}, &captureSink{})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		req := upstream.lastReq
		if req.ThinkingBudget != nil {
			t.Error("thinking budget forwarded to a non-thinking model")
		}
		if len(req.Modalities) == 0 {
			t.Error("image model should default to text+image modalities")
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Error("temperature should pass through untouched")
		}
	})

	t.Run("image options dropped for text model", func(t *testing.T) {
		upstream := &fakeUpstream{body: record(`{"text":"x"}`) + record(`{"done":true}`)}
		svc, _ := newTestService(t, upstream)
		_, err := svc.Generate(context.Background(), "admin", &Input{
			Prompt:  "hello",
			Model:   "gemini-2.5-pro",
			Options: Options{ThinkingBudget: &budget, ImageAspectRatio: "16:9", Modalities: []string{"image"}},
		}, &captureSink{})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		req := upstream.lastReq
		if req.ThinkingBudget == nil || *req.ThinkingBudget != 2048 {
			t.Error("thinking budget should pass through for a thinking model")
		}
		if req.ImageAspectRatio != "" || len(req.Modalities) != 0 {
			t.Error("image options forwarded to a text model")
		}
	})
}

func TestService_UpstreamOpenFailure(t *testing.T) {
	upstream := &fakeUpstream{openErr: errors.New("connect refused")}
	svc, repo := newTestService(t, upstream)
	sink := &captureSink{}

	res, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "hi"}, sink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(sink.events) != 1 || sink.events[0].Kind != stream.EventError {
		t.Fatalf("sink events = %+v, want single error event", sink.events)
	}
	if sink.events[0].Err.Kind != stream.ErrKindUpstreamUnavailable {
		t.Errorf("error kind = %v, want upstream_unavailable", sink.events[0].Err.Kind)
	}

	// The failure stays visible in the transcript.
	conv, err := repo.FindByPublicID(context.Background(), "admin", res.ConversationID)
	if err != nil {
		t.Fatalf("stored conversation missing: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("stored %d messages, want user turn plus error turn", len(conv.Messages))
	}
	if !strings.HasPrefix(conv.Messages[1].Content, "Generation failed") {
		t.Errorf("error turn content = %q", conv.Messages[1].Content)
	}
}

func TestService_EmptyTurnSkipsAssistantMessage(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"done":true}`)}
	svc, repo := newTestService(t, upstream)

	res, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "hi"}, &captureSink{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Message != nil {
		t.Errorf("message = %+v, want nil for empty turn", res.Message)
	}

	conv, err := repo.FindByPublicID(context.Background(), "admin", res.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("stored %d messages, want user turn only", len(conv.Messages))
	}
}

func TestService_TruncatedStreamPersistsErrorTurn(t *testing.T) {
	upstream := &fakeUpstream{body: record(`{"text":"par"}`)}
	svc, repo := newTestService(t, upstream)
	sink := &captureSink{}

	res, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "hi"}, sink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Failure == nil || res.Failure.Kind != stream.ErrKindTruncated {
		t.Fatalf("failure = %+v, want truncated", res.Failure)
	}

	conv, _ := repo.FindByPublicID(context.Background(), "admin", res.ConversationID)
	if len(conv.Messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(conv.Messages))
	}
	content := conv.Messages[1].Content
	if !strings.HasPrefix(content, "Generation failed") || !strings.Contains(content, "par") {
		t.Errorf("error turn = %q, want marker and partial text", content)
	}
}

func TestService_GenerateRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	upstream := &fakeUpstream{body: record(`{"text":"hi"}`) + record(`{"done":true}`)}
	svc, _ := newTestService(t, upstream)

	if _, err := svc.Generate(context.Background(), "admin", &Input{Prompt: "hi"}, &captureSink{}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "generation.turn" {
		t.Errorf("span name = %q", span.Name())
	}
	var sawModel, sawOpened bool
	for _, attr := range span.Attributes() {
		if attr.Key == "model.id" && attr.Value.AsString() != "" {
			sawModel = true
		}
	}
	for _, ev := range span.Events() {
		if ev.Name == "upstream stream opened" {
			sawOpened = true
		}
	}
	if !sawModel {
		t.Error("span missing model.id attribute")
	}
	if !sawOpened {
		t.Error("span missing stream-opened event")
	}
}
