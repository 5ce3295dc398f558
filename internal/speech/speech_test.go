package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/llm"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
)

type fakeTranscriber struct {
	text    string
	err     error
	gotPath string
	gotData string
	block   bool
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.gotPath = path
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.gotData = string(data)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranscribe_Success(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeTranscriber{text: "  sir please pay 500 extra  "}
	svc := New(backend, Options{TempDir: dir})

	text, err := svc.Transcribe(context.Background(), "clip.WAV", strings.NewReader("RIFF...."))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "sir please pay 500 extra" {
		t.Errorf("unexpected text %q", text)
	}
	if backend.gotData != "RIFF...." {
		t.Errorf("backend saw %q", backend.gotData)
	}
	if filepath.Ext(backend.gotPath) != ".wav" {
		t.Errorf("expected staged file to keep the extension, got %s", backend.gotPath)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("staged audio not removed: %v", left)
	}
}

func TestTranscribe_BackendFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("unsupported codec")
	metrics := observability.NewMetrics()
	svc := New(&fakeTranscriber{err: boom}, Options{TempDir: dir, Metrics: metrics})

	_, err := svc.Transcribe(context.Background(), "clip.mp3", strings.NewReader("garbage"))

	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranscriptionError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
	if terr.Filename != "clip.mp3" {
		t.Errorf("unexpected filename %q", terr.Filename)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("staged audio not removed after failure: %v", left)
	}
	if metrics.TranscriptionErrors.Value() != 1 {
		t.Errorf("expected 1 transcription error, got %f", metrics.TranscriptionErrors.Value())
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeTranscriber{text: "never"}
	svc := New(backend, Options{TempDir: dir})

	_, err := svc.Transcribe(context.Background(), "clip.wav", strings.NewReader(""))
	if !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
	if backend.gotPath != "" {
		t.Error("backend should not be called for empty audio")
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("staged audio not removed: %v", left)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestTranscribe_ReadFailure(t *testing.T) {
	dir := t.TempDir()
	svc := New(&fakeTranscriber{}, Options{TempDir: dir})

	_, err := svc.Transcribe(context.Background(), "clip.wav", failingReader{})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read error, got %v", err)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("staged audio not removed: %v", left)
	}
}

func TestTranscribe_Timeout(t *testing.T) {
	dir := t.TempDir()
	svc := New(&fakeTranscriber{block: true}, Options{TempDir: dir, Timeout: 20 * time.Millisecond})

	_, err := svc.Transcribe(context.Background(), "clip.wav", strings.NewReader("data"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("staged audio not removed: %v", left)
	}
}

func TestTranscriptionError_Message(t *testing.T) {
	err := &TranscriptionError{Err: ErrEmptyAudio}
	if err.Error() != "transcription failed: empty audio payload" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestTranscriptionError_Rejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"empty audio", fmt.Errorf("staging audio: %w", ErrEmptyAudio), true},
		{"bad request", &llm.StatusError{Provider: "openai", Code: 400}, true},
		{"unsupported media", fmt.Errorf("wrapped: %w", &llm.StatusError{Provider: "openai", Code: 415}), true},
		{"rate limited", &llm.StatusError{Provider: "openai", Code: 429}, false},
		{"server error", &llm.StatusError{Provider: "openai", Code: 502}, false},
		{"transport", errors.New("connection reset by peer"), false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terr := &TranscriptionError{Filename: "clip.webm", Err: tt.err}
			if got := terr.Rejected(); got != tt.want {
				t.Errorf("Rejected() = %v, want %v", got, tt.want)
			}
		})
	}
}
