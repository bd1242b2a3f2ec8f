package chathandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/generation"
	"genai-console/internal/infrastructure/metrics"
	"genai-console/internal/interfaces/httpserver/middlewares"
	"genai-console/internal/interfaces/httpserver/requests"
	"genai-console/internal/interfaces/httpserver/responses"
	"genai-console/internal/stream"
)

// heartbeatInterval is how long the connection may sit idle before a comment
// line is written to keep intermediaries from closing it.
const heartbeatInterval = 15 * time.Second

// ChatHandler serves the streaming generation endpoint.
type ChatHandler struct {
	generations *generation.Service
	logger      zerolog.Logger
}

func NewChatHandler(generations *generation.Service, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{generations: generations, logger: logger}
}

// Stream relays one generation turn as a live event stream.
func (h *ChatHandler) Stream(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, errors.New("no session"), "unauthorized")
		return
	}

	var req requests.ChatStreamRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid chat request")
		return
	}
	if err := req.Validate(); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid chat request")
		return
	}
	input, err := req.ToInput()
	if err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid chat request")
		return
	}

	flusher, ok := middlewares.PrepareSSE(reqCtx)
	if !ok {
		responses.HandleError(reqCtx, errors.New("streaming unsupported"), "streaming unsupported by connection")
		return
	}

	modelLabel := input.Model
	if modelLabel == "" {
		modelLabel = "default"
	}
	metrics.IncrementActiveStreams(modelLabel)
	defer metrics.DecrementActiveStreams(modelLabel)

	sink := newSSESink(reqCtx, flusher, modelLabel)
	stopHeartbeat := sink.startHeartbeat(heartbeatInterval)
	defer stopHeartbeat()

	start := time.Now()
	result, err := h.generations.Generate(reqCtx.Request.Context(), principal.ID, input, sink)
	if err != nil {
		// Pre-stream failures still have a clean response to use.
		if !sink.wrote() {
			responses.HandleError(reqCtx, err, "generation request rejected")
			return
		}
		h.logger.Error().Err(err).Msg("generation failed after streaming started")
		return
	}

	outcome := "success"
	if result.Failure != nil {
		outcome = string(result.Failure.Kind)
		metrics.RecordProviderError(outcome)
	}
	metrics.RecordGeneration(modelLabel, outcome, time.Since(start).Seconds())

	// Trailing metadata record so clients learn the conversation identity of
	// a fresh transcript. Consumers skip record shapes they do not know.
	sink.sendRaw(map[string]any{
		"conversation": map[string]string{
			"id":    result.ConversationID,
			"title": result.Title,
		},
	})
}

// sseSink serializes event writes and heartbeats onto one response stream.
type sseSink struct {
	mu        sync.Mutex
	reqCtx    *gin.Context
	flusher   http.Flusher
	model     string
	started   time.Time
	lastWrite time.Time
	wroteAny  bool
	sawFirst  bool
	done      chan struct{}
}

func newSSESink(reqCtx *gin.Context, flusher http.Flusher, model string) *sseSink {
	now := time.Now()
	return &sseSink{
		reqCtx:    reqCtx,
		flusher:   flusher,
		model:     model,
		started:   now,
		lastWrite: now,
		done:      make(chan struct{}),
	}
}

var _ generation.EventSink = (*sseSink)(nil)

func (s *sseSink) SendEvent(ev *stream.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := stream.WriteRecord(s.reqCtx.Writer, ev); err != nil {
		return err
	}
	s.flusher.Flush()

	s.wroteAny = true
	s.lastWrite = time.Now()
	if !s.sawFirst {
		s.sawFirst = true
		metrics.RecordFirstEvent(s.model, time.Since(s.started).Seconds())
	}
	metrics.RecordStreamEvent(string(ev.Kind))
	return nil
}

// sendRaw writes one out-of-band JSON record.
func (s *sseSink) sendRaw(payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.reqCtx.Writer.Write([]byte("data: ")); err != nil {
		return
	}
	if _, err := s.reqCtx.Writer.Write(raw); err != nil {
		return
	}
	if _, err := s.reqCtx.Writer.Write([]byte("\n\n")); err != nil {
		return
	}
	s.flusher.Flush()
	s.lastWrite = time.Now()
	s.wroteAny = true
}

func (s *sseSink) wrote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wroteAny
}

// startHeartbeat writes comment lines while the stream is idle. The returned
// stop function must be called before the handler returns.
func (s *sseSink) startHeartbeat(interval time.Duration) func() {
	ticker := time.NewTicker(interval / 3)
	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.heartbeat(interval)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(s.done)
		})
	}
}

func (s *sseSink) heartbeat(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastWrite) < interval {
		return
	}
	if err := stream.WriteHeartbeat(s.reqCtx.Writer); err != nil {
		return
	}
	s.flusher.Flush()
	s.lastWrite = time.Now()
}
