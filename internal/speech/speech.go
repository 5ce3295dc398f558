// Package speech turns uploaded audio recordings into transcripts.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
)

// ErrEmptyAudio is returned for an upload with no bytes.
var ErrEmptyAudio = errors.New("empty audio payload")

// Transcriber is a speech-to-text backend. It reads a complete recording
// from path.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Name() string
}

// TranscriptionError reports that a recording could not be turned into
// text.
type TranscriptionError struct {
	Filename string
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e.Filename == "" {
		return "transcription failed: " + e.Err.Error()
	}
	return fmt.Sprintf("transcription of %s failed: %v", e.Filename, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Rejected reports whether the recording itself was refused: an empty
// upload, or a 4xx from the backend other than rate limiting. Anything
// else is a backend or transport failure.
func (e *TranscriptionError) Rejected() bool {
	if errors.Is(e.Err, ErrEmptyAudio) {
		return true
	}
	var se *llm.StatusError
	if errors.As(e.Err, &se) {
		return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

// Options configures a Service.
type Options struct {
	// TempDir is where uploads are staged. Empty uses os.TempDir.
	TempDir string
	// Timeout bounds a single backend call. Zero means no bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Service stages audio on disk for the backend and always removes it
// afterwards.
type Service struct {
	backend Transcriber
	tempDir string
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Service.
func New(backend Transcriber, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		backend: backend,
		tempDir: opts.TempDir,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Transcribe converts a complete recording to text. filename is the
// client-supplied name; only its extension is used, to let the backend
// detect the container format. Every failure is a *TranscriptionError.
func (s *Service) Transcribe(ctx context.Context, filename string, audio io.Reader) (text string, err error) {
	defer func() {
		s.metrics.RecordTranscription(err)
	}()

	path, size, err := s.stage(filename, audio)
	if err != nil {
		return "", &TranscriptionError{Filename: filename, Err: err}
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("removing staged audio", "path", path, "error", rmErr)
		}
	}()

	ctx, span := observability.StartTranscriptionSpan(ctx, filename, size)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err = s.backend.Transcribe(ctx, path)
	if err != nil {
		observability.RecordError(span, err)
		s.logger.Error("transcription failed", "backend", s.backend.Name(), "bytes", size, "error", err)
		return "", &TranscriptionError{Filename: filename, Err: err}
	}

	text = strings.TrimSpace(text)
	s.logger.Info("transcribed audio",
		"backend", s.backend.Name(),
		"bytes", size,
		"chars", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}

// stage copies audio to a fresh temporary file. The file is removed here on
// any failure, so callers only clean up on success.
func (s *Service) stage(filename string, audio io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	f, err := os.CreateTemp(s.tempDir, "pramaan-audio-*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("staging audio: %w", err)
	}

	size, err := io.Copy(f, audio)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size == 0 {
		err = ErrEmptyAudio
	}
	if err != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("staging audio: %w", err)
	}
	return f.Name(), size, nil
}
