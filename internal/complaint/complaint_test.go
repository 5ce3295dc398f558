package complaint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/efebarandurmaz/pramaanx/internal/config"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
)

func plainText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("rendered document does not parse: %v", err)
	}
	txt, err := r.GetPlainText()
	if err != nil {
		t.Fatalf("extracting text: %v", err)
	}
	b, err := io.ReadAll(txt)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func fixedClock(ts string) func() time.Time {
	tm, _ := time.Parse(TimeLayout, ts)
	return func() time.Time { return tm }
}

func TestRender_Layout(t *testing.T) {
	g := New(Options{Clock: fixedClock("2025-01-15 10:30:00")})
	data, err := Render(g.Record("Sir asked for 500 extra for chai."), "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("missing PDF header")
	}

	text := plainText(t, data)
	want := []string{
		config.DefaultComplaintTitle,
		"Date: 2025-01-15 10:30:00",
		"Location: " + config.DefaultLocation,
		"To: " + config.DefaultRecipient,
		"Incident Transcript / Evidence:",
		"Citizen's Statement: Sir asked for 500 extra for chai.",
		"Action Requested: Immediate Investigation.",
	}
	last := -1
	for _, w := range want {
		i := strings.Index(text, w)
		if i < 0 {
			t.Fatalf("missing %q in:\n%s", w, text)
		}
		if i < last {
			t.Errorf("%q is out of order", w)
		}
		last = i
	}
	if !strings.Contains(text, "Section 7 of the Prevention of Corruption Act") {
		t.Errorf("missing citation in:\n%s", text)
	}
}

func TestGenerate_DiffersOnlyInTimestamp(t *testing.T) {
	dir := t.TempDir()
	transcript := "Agent said pay cash, no receipt."

	first, err := New(Options{OutputPath: filepath.Join(dir, "a.pdf"), Clock: fixedClock("2025-01-15 10:30:00")}).
		Generate(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(Options{OutputPath: filepath.Join(dir, "b.pdf"), Clock: fixedClock("2025-03-02 08:05:59")}).
		Generate(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}

	a := plainText(t, first.Data)
	b := plainText(t, second.Data)
	if a == b {
		t.Fatal("expected timestamps to differ")
	}
	for _, text := range []string{a, b} {
		if !strings.Contains(text, transcript) {
			t.Errorf("transcript missing from %q", text)
		}
	}
	a = strings.Replace(a, "2025-01-15 10:30:00", "<ts>", 1)
	b = strings.Replace(b, "2025-03-02 08:05:59", "<ts>", 1)
	if a != b {
		t.Errorf("documents differ beyond the timestamp:\n%s\n---\n%s", a, b)
	}
}

func TestGenerate_NonLatinWithoutFontFails(t *testing.T) {
	transcripts := []string{
		"ఏజెంట్ 500 రూపాయలు అడిగాడు",
		"एजेंट ने 500 रुपये मांगे",
		"Agent asked ₹500 extra",
	}
	for _, transcript := range transcripts {
		t.Run(transcript, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.pdf")
			_, err := New(Options{OutputPath: path}).Generate(context.Background(), transcript)

			var gerr *GenerationError
			if !errors.As(err, &gerr) {
				t.Fatalf("expected *GenerationError, got %v", err)
			}
			if !errors.Is(err, ErrUnsupportedText) {
				t.Errorf("expected ErrUnsupportedText, got %v", err)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Error("no file should be written for an unrenderable complaint")
			}
		})
	}
}

func TestGenerate_UTF8Font(t *testing.T) {
	font := "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	if _, err := os.Stat(font); err != nil {
		t.Skip("DejaVuSans.ttf not installed")
	}

	g := New(Options{OutputPath: filepath.Join(t.TempDir(), "c.pdf"), FontPath: font})
	art, err := g.Generate(context.Background(), "Agent asked ₹500 extra / एजेंट ने 500 रुपये मांगे")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Contains(art.Data, []byte("/FontFile2")) {
		t.Error("expected the TrueType font to be embedded")
	}
}

func TestGenerate_MissingFont(t *testing.T) {
	g := New(Options{
		OutputPath: filepath.Join(t.TempDir(), "c.pdf"),
		FontPath:   filepath.Join(t.TempDir(), "absent.ttf"),
	})
	_, err := g.Generate(context.Background(), "text")

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGenerate_OverwritesOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "PramaanX_Complaint.pdf")
	metrics := observability.NewMetrics()
	g := New(Options{OutputPath: path, Metrics: metrics})

	if _, err := g.Generate(context.Background(), "first statement"); err != nil {
		t.Fatal(err)
	}
	art, err := g.Generate(context.Background(), "second statement")
	if err != nil {
		t.Fatal(err)
	}

	if art.Name != "PramaanX_Complaint.pdf" || art.Path != path {
		t.Errorf("unexpected artifact %s %s", art.Name, art.Path)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, art.Data) {
		t.Error("file on disk should be the latest render")
	}
	if strings.Contains(plainText(t, onDisk), "first statement") {
		t.Error("previous complaint was not replaced")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in output dir, got %d entries", len(entries))
	}
	if metrics.ComplaintsTotal.Value() != 2 {
		t.Errorf("expected 2 complaints counted, got %f", metrics.ComplaintsTotal.Value())
	}
}

func TestGenerate_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	g := New(Options{OutputPath: filepath.Join(blocker, "complaint.pdf")})
	_, err := g.Generate(context.Background(), "text")

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if gerr.Path != filepath.Join(blocker, "complaint.pdf") {
		t.Errorf("unexpected path %s", gerr.Path)
	}
}

func TestNew_ConfiguredLabels(t *testing.T) {
	g := New(Options{Location: "Nandyal RTO", Citation: "Section 161 IPC."})
	rec := g.Record("x")
	if rec.Location != "Nandyal RTO" || rec.Citation != "Section 161 IPC." {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Recipient != config.DefaultRecipient {
		t.Errorf("expected default recipient, got %s", rec.Recipient)
	}
}
