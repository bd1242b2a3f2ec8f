package generation

import (
	"context"
	"io"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/stream"
)

// Attachment is one user-supplied inline file accompanying a prompt.
type Attachment struct {
	Data     []byte
	MimeType string
}

// Options are the request knobs a client may set. Unsupported knobs are
// dropped for models that lack the matching capability.
type Options struct {
	SystemInstruction string
	Temperature       *float64
	ThinkingBudget    *int
	ImageAspectRatio  string
	ImageResolution   string
	Modalities        []string
}

// Input is one generation request as accepted by the relay.
type Input struct {
	Prompt         string
	Model          string
	ConversationID string
	History        []conversation.Message
	Attachments    []Attachment
	Options        Options
}

// Part is one piece of upstream content, either text or an inline blob.
type Part struct {
	Text       string
	InlineData *Blob
}

type Blob struct {
	Data     []byte
	MimeType string
}

// Content is one upstream conversation entry. Role is "user" or "model" in
// the provider's vocabulary.
type Content struct {
	Role  string
	Parts []Part
}

// UpstreamRequest is the fully gated request handed to the provider client.
type UpstreamRequest struct {
	Model             string
	Contents          []Content
	SystemInstruction string
	Temperature       *float64
	ThinkingBudget    *int
	ImageAspectRatio  string
	ImageResolution   string
	Modalities        []string
}

// StreamOpener opens a raw response stream for a request. Implementations
// must honour ctx cancellation on the returned reader.
type StreamOpener interface {
	OpenStream(ctx context.Context, req *UpstreamRequest) (io.ReadCloser, error)
}

// EventSink receives relayed events in order. Send errors abort the relay;
// the turn outcome is still assembled and persisted.
type EventSink interface {
	SendEvent(ev *stream.Event) error
}

// Result summarizes a finished turn.
type Result struct {
	ConversationID string
	Title          string
	Message        *conversation.Message
	Failure        *stream.ErrorInfo
}
