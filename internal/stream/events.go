package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// EventKind identifies the protocol event variant carried by an Event.
type EventKind string

const (
	EventText     EventKind = "text"
	EventThinking EventKind = "thinking"
	EventImage    EventKind = "image"
	EventError    EventKind = "error"
	EventDone     EventKind = "done"
)

// ErrorKind is the protocol-level failure taxonomy shared by the framer, the
// relay and the client-facing wire format.
type ErrorKind string

const (
	ErrKindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrKindTimeout             ErrorKind = "timeout"
	ErrKindTruncated           ErrorKind = "truncated"
	ErrKindMalformedPayload    ErrorKind = "malformed_payload"
	ErrKindValidation          ErrorKind = "validation_error"
)

// ImagePayload is one complete inline image extracted from the stream.
// Thinking marks intermediate draft revisions emitted while the model is
// still reasoning; only the last of those survives assembly unless a final
// image arrives.
type ImagePayload struct {
	Data     []byte
	MimeType string
	Thinking bool
}

// ErrorInfo describes a terminal stream failure.
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
	Details string
}

// Event is one classified unit extracted from the raw stream. Exactly one of
// Text/Image/Err is meaningful depending on Kind; Done carries nothing.
type Event struct {
	Kind  EventKind
	Text  string
	Image *ImagePayload
	Err   *ErrorInfo
}

// NewErrorEvent builds a terminal error event.
func NewErrorEvent(kind ErrorKind, message, details string) *Event {
	return &Event{Kind: EventError, Err: &ErrorInfo{Kind: kind, Message: message, Details: details}}
}

// wireRecord mirrors the line-oriented wire format: one JSON object per
// record, discriminated by which key is present.
type wireRecord struct {
	Text     *string    `json:"text,omitempty"`
	Thinking *string    `json:"thinking,omitempty"`
	Image    *wireImage `json:"image,omitempty"`
	Error    *string    `json:"error,omitempty"`
	Message  string     `json:"message,omitempty"`
	Details  string     `json:"details,omitempty"`
	Done     bool       `json:"done,omitempty"`
}

type wireImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Thinking bool   `json:"thinking,omitempty"`
}

// WriteRecord encodes one event as a wire record ("data: <json>" terminated
// by a blank line) and writes it to w.
func WriteRecord(w io.Writer, ev *Event) error {
	rec := wireRecord{}
	switch ev.Kind {
	case EventText:
		rec.Text = &ev.Text
	case EventThinking:
		rec.Thinking = &ev.Text
	case EventImage:
		rec.Image = &wireImage{
			Data:     base64.StdEncoding.EncodeToString(ev.Image.Data),
			MimeType: ev.Image.MimeType,
			Thinking: ev.Image.Thinking,
		}
	case EventError:
		kind := string(ev.Err.Kind)
		rec.Error = &kind
		rec.Message = ev.Err.Message
		rec.Details = ev.Err.Details
	case EventDone:
		rec.Done = true
	default:
		return fmt.Errorf("stream: unknown event kind %q", ev.Kind)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("stream: encode record: %w", err)
	}

	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

// WriteHeartbeat writes a comment line that keeps the connection alive
// without producing a protocol event on the consumer side.
func WriteHeartbeat(w io.Writer) error {
	_, err := w.Write([]byte(": heartbeat\n\n"))
	return err
}
