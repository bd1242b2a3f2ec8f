package attachments

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/generation"
)

// Spool buffers attachment payloads in a per-request temp directory so large
// uploads never sit in process memory longer than needed. Cleanup removes the
// whole directory.
type Spool struct {
	dir    string
	logger zerolog.Logger
}

func NewSpool(logger zerolog.Logger) (*Spool, error) {
	dir, err := os.MkdirTemp("", "console-attach-")
	if err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir, logger: logger}, nil
}

var _ generation.Spooler = (*Spool)(nil)

// Add writes one payload and returns its path.
func (s *Spool) Add(data []byte, mimeType string) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("spool attachment: %w", err)
	}
	return path, nil
}

// Cleanup removes every spooled file.
func (s *Spool) Cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.dir).Msg("failed to remove attachment spool")
	}
}

// Factory adapts NewSpool to the generation service's factory contract.
func Factory(logger zerolog.Logger) generation.SpoolFactory {
	return func() (generation.Spooler, error) {
		return NewSpool(logger)
	}
}
