package stream

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"genai-console/internal/domain/conversation"
)

// ErrEmptyTurn reports a stream that completed cleanly without producing any
// content. Such turns are logged and skipped, never persisted.
var ErrEmptyTurn = errors.New("stream completed without content")

// ErrIncompleteTurn reports a Finalize call before a terminal event arrived.
var ErrIncompleteTurn = errors.New("stream has no terminal event yet")

// Assembler folds the ordered event sequence of one generation turn into a
// single assistant message. Text and thinking deltas concatenate in arrival
// order; images deduplicate so that final images win over thinking drafts,
// and among drafts only the last survives.
type Assembler struct {
	content       strings.Builder
	thinking      strings.Builder
	finalImages   []conversation.Image
	thinkingImage *conversation.Image
	failure       *ErrorInfo
	done          bool
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Consume folds one event into the turn. Events after a terminal event are
// ignored; the framer never emits them anyway.
func (a *Assembler) Consume(ev *Event) {
	if a.done || a.failure != nil {
		return
	}
	switch ev.Kind {
	case EventText:
		a.content.WriteString(ev.Text)
	case EventThinking:
		a.thinking.WriteString(ev.Text)
	case EventImage:
		img := conversation.Image{
			Data:     ev.Image.Data,
			MimeType: ev.Image.MimeType,
		}
		if ev.Image.Thinking {
			img.ProvenanceTag = conversation.ProvenanceThinking
			a.thinkingImage = &img
		} else {
			img.ProvenanceTag = conversation.ProvenanceFinal
			a.finalImages = append(a.finalImages, img)
		}
	case EventError:
		a.failure = ev.Err
	case EventDone:
		a.done = true
	}
}

// Terminal reports whether a Done or Error event has been consumed.
func (a *Assembler) Terminal() bool {
	return a.done || a.failure != nil
}

// Failure returns the terminal error, if the turn ended with one.
func (a *Assembler) Failure() *ErrorInfo {
	return a.failure
}

// Finalize produces the assembled assistant message. A turn that failed
// terminally yields a message whose content is a readable error summary, so
// the failure stays visible in the transcript. A clean turn with no content
// at all returns ErrEmptyTurn.
func (a *Assembler) Finalize() (*conversation.Message, error) {
	if !a.Terminal() {
		return nil, ErrIncompleteTurn
	}

	msg := &conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   a.content.String(),
		Thinking:  a.thinking.String(),
		Images:    a.images(),
		CreatedAt: time.Now().UTC(),
	}

	if a.failure != nil {
		summary := fmt.Sprintf("Generation failed (%s): %s", a.failure.Kind, a.failure.Message)
		if a.failure.Details != "" {
			summary += "\n" + truncateDetails(a.failure.Details)
		}
		if msg.Content != "" {
			summary += "\n\nPartial response:\n" + msg.Content
		}
		msg.Content = summary
		return msg, nil
	}

	if msg.IsEmpty() {
		return nil, ErrEmptyTurn
	}
	return msg, nil
}

// images applies the dedup rule: when at least one final image exists, only
// final images are kept; otherwise the last thinking draft stands in.
func (a *Assembler) images() []conversation.Image {
	if len(a.finalImages) > 0 {
		return a.finalImages
	}
	if a.thinkingImage != nil {
		return []conversation.Image{*a.thinkingImage}
	}
	return nil
}

func truncateDetails(details string) string {
	const limit = 500
	if len(details) <= limit {
		return details
	}
	return details[:limit] + "..."
}
