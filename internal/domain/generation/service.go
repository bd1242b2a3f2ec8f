package generation

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"genai-console/internal/domain/conversation"
	"genai-console/internal/domain/model"
	"genai-console/internal/infrastructure/observability"
	"genai-console/internal/stream"
	"genai-console/internal/utils/platformerrors"
)

// Spooler buffers attachment payloads outside process memory for the
// lifetime of one request.
type Spooler interface {
	Add(data []byte, mimeType string) (string, error)
	Cleanup()
}

// SpoolFactory creates a per-request spool.
type SpoolFactory func() (Spooler, error)

// Service is the relay between console requests and the upstream provider.
// It validates input, translates transcript history into the provider's
// shape, streams the response back through the sink, and persists the
// finished turn.
type Service struct {
	upstream      StreamOpener
	conversations *conversation.Service
	models        *model.Registry
	newSpool      SpoolFactory
	timeout       time.Duration
	logger        zerolog.Logger
}

func NewService(upstream StreamOpener, conversations *conversation.Service, models *model.Registry,
	newSpool SpoolFactory, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		upstream:      upstream,
		conversations: conversations,
		models:        models,
		newSpool:      newSpool,
		timeout:       timeout,
		logger:        logger.With().Str("component", "generation_service").Logger(),
	}
}

// Generate runs one turn. Validation failures return before any upstream
// call; once the stream is open, failures travel through the sink as error
// events and the method still returns a Result describing the turn.
func (s *Service) Generate(ctx context.Context, userID string, input *Input, sink EventSink) (*Result, error) {
	mdl, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "genai-console/generation", "generation.turn")
	defer span.End()
	observability.AddSpanAttributes(ctx, attribute.String("model.id", mdl.ID))

	req, cleanup, err := s.buildRequest(ctx, input, mdl)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	defer cleanup()

	// The whole turn, including streaming, shares one wall-clock deadline.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	asm := stream.NewAssembler()
	start := time.Now()

	body, err := s.upstream.OpenStream(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("model", mdl.ID).Msg("upstream stream open failed")
		observability.RecordError(ctx, err)
		asm.Consume(s.sendFailure(ctx, sink, err))
	} else {
		defer body.Close()
		observability.AddSpanEvent(ctx, "upstream stream opened")
		s.relay(ctx, body, sink, asm)
	}

	if failure := asm.Failure(); failure != nil {
		observability.AddSpanEvent(ctx, "generation failed",
			attribute.String("error.kind", string(failure.Kind)))
	}
	s.logger.Info().Str("model", mdl.ID).Dur("duration", time.Since(start)).
		Bool("failed", asm.Failure() != nil).Msg("generation turn finished")

	return s.persist(ctx, userID, input, asm)
}

func (s *Service) validate(ctx context.Context, input *Input) (*model.Model, error) {
	if strings.TrimSpace(input.Prompt) == "" && len(input.Attachments) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "prompt must not be empty", nil)
	}
	if input.Model == "" {
		return s.models.Default(), nil
	}
	mdl, ok := s.models.Find(input.Model)
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "unknown model "+input.Model, nil)
	}
	if len(input.Attachments) > 0 && !mdl.Capabilities.ImageInput {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "model does not accept image input", nil)
	}
	return mdl, nil
}

// buildRequest translates history and the new prompt into provider content,
// dropping options the model cannot honour. Attachment payloads are spooled
// to disk for the duration of the request.
func (s *Service) buildRequest(ctx context.Context, input *Input, mdl *model.Model) (*UpstreamRequest, func(), error) {
	cleanup := func() {}
	if len(input.Attachments) > 0 && s.newSpool != nil {
		spool, err := s.newSpool()
		if err != nil {
			return nil, cleanup, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
				platformerrors.ErrorTypeInternal, "spool attachments", err)
		}
		cleanup = spool.Cleanup
		for _, att := range input.Attachments {
			if _, err := spool.Add(att.Data, att.MimeType); err != nil {
				cleanup()
				return nil, func() {}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
					platformerrors.ErrorTypeInternal, "spool attachments", err)
			}
		}
	}

	contents := translateHistory(input.History)

	userParts := []Part{}
	if input.Prompt != "" {
		userParts = append(userParts, Part{Text: input.Prompt})
	}
	for _, att := range input.Attachments {
		userParts = append(userParts, Part{InlineData: &Blob{Data: att.Data, MimeType: att.MimeType}})
	}
	contents = append(contents, Content{Role: "user", Parts: userParts})

	req := &UpstreamRequest{
		Model:             mdl.ID,
		Contents:          contents,
		SystemInstruction: input.Options.SystemInstruction,
		Temperature:       input.Options.Temperature,
	}
	if mdl.Capabilities.Thinking {
		req.ThinkingBudget = input.Options.ThinkingBudget
	}
	if mdl.Capabilities.ImageOutput {
		req.ImageAspectRatio = input.Options.ImageAspectRatio
		req.ImageResolution = input.Options.ImageResolution
		req.Modalities = input.Options.Modalities
		if len(req.Modalities) == 0 {
			req.Modalities = []string{"text", "image"}
		}
	}
	return req, cleanup, nil
}

// translateHistory maps transcript messages onto provider roles, dropping
// entries with no content. Thinking text never travels back upstream.
func translateHistory(history []conversation.Message) []Content {
	var contents []Content
	for i := range history {
		m := &history[i]
		if m.Content == "" && len(m.Images) == 0 {
			continue
		}
		role := "user"
		if m.Role == conversation.RoleAssistant {
			role = "model"
		}
		var parts []Part
		if m.Content != "" {
			parts = append(parts, Part{Text: m.Content})
		}
		for _, img := range m.Images {
			parts = append(parts, Part{InlineData: &Blob{Data: img.Data, MimeType: img.MimeType}})
		}
		contents = append(contents, Content{Role: role, Parts: parts})
	}
	return contents
}

// relay pumps framed events to the sink and the assembler until the stream
// terminates. Deadline expiry is reported as a timeout, not a truncation.
func (s *Service) relay(ctx context.Context, body io.Reader, sink EventSink, asm *stream.Assembler) {
	framer := stream.NewFramer(body)
	for {
		ev, err := framer.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			ev = s.sendFailure(ctx, sink, err)
			asm.Consume(ev)
			return
		}

		if ev.Kind == stream.EventError && ctx.Err() != nil {
			ev = timeoutOrCancel(ctx, ev)
		}

		asm.Consume(ev)
		if sendErr := sink.SendEvent(ev); sendErr != nil {
			// Client went away. The turn outcome is still recorded.
			s.logger.Warn().Err(sendErr).Msg("client disconnected mid-stream")
			return
		}
		if asm.Terminal() {
			return
		}
	}
}

// sendFailure converts a Go error into a terminal error event and forwards it.
func (s *Service) sendFailure(ctx context.Context, sink EventSink, err error) *stream.Event {
	var ev *stream.Event
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		ev = stream.NewErrorEvent(stream.ErrKindTimeout, "generation exceeded the request deadline", "")
	default:
		ev = stream.NewErrorEvent(stream.ErrKindUpstreamUnavailable, "upstream provider unavailable", err.Error())
	}
	if sendErr := sink.SendEvent(ev); sendErr != nil {
		s.logger.Warn().Err(sendErr).Msg("failed to deliver error event")
	}
	return ev
}

// timeoutOrCancel reclassifies a transport-level truncation caused by our own
// deadline or the client hanging up.
func timeoutOrCancel(ctx context.Context, ev *stream.Event) *stream.Event {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stream.NewErrorEvent(stream.ErrKindTimeout, "generation exceeded the request deadline", "")
	}
	return ev
}

// persist appends the user turn and the assembled assistant turn to the
// conversation. A cancelled or failed stream persists as an error turn; a
// clean but empty stream persists the user turn only.
func (s *Service) persist(ctx context.Context, userID string, input *Input, asm *stream.Assembler) (*Result, error) {
	// Persistence must proceed even when the request context is done.
	persistCtx := context.WithoutCancel(ctx)

	userMsg := conversation.Message{
		Role:      conversation.RoleUser,
		Content:   input.Prompt,
		CreatedAt: time.Now().UTC(),
	}
	for _, att := range input.Attachments {
		userMsg.Images = append(userMsg.Images, conversation.Image{Data: att.Data, MimeType: att.MimeType})
	}

	msgs := []conversation.Message{userMsg}
	assistantMsg, err := asm.Finalize()
	switch {
	case err == nil:
		msgs = append(msgs, *assistantMsg)
	case errors.Is(err, stream.ErrEmptyTurn):
		s.logger.Warn().Msg("stream completed without content, skipping assistant turn")
	default:
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "assemble turn", err)
	}

	conv, err := s.conversations.AppendTurn(persistCtx, userID, input.ConversationID, msgs...)
	if err != nil {
		return nil, err
	}

	return &Result{
		ConversationID: conv.PublicID,
		Title:          conv.Title,
		Message:        assistantMsg,
		Failure:        asm.Failure(),
	}, nil
}
