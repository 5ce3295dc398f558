// Package complaint renders the formal vigilance complaint PDF.
package complaint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/efebarandurmaz/pramaanx/internal/config"
	"github.com/efebarandurmaz/pramaanx/internal/observability"
)

// TimeLayout is the timestamp format printed on the complaint.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultOutputPath is where the artifact is written when none is set.
const DefaultOutputPath = "PramaanX_Complaint.pdf"

// ErrUnsupportedText is returned when the page text needs glyphs outside
// the built-in fonts and no UTF-8 font is configured.
var ErrUnsupportedText = errors.New("text not representable in the built-in fonts; configure complaint.font_path")

const unicodeFamily = "unicode"

// Record is everything that goes on the page.
type Record struct {
	Title      string
	Time       time.Time
	Location   string
	Recipient  string
	Transcript string
	Citation   string
	Action     string
}

// Artifact is a rendered complaint.
type Artifact struct {
	Name string // file name offered to clients
	Path string // where it was written
	Data []byte
}

// GenerationError reports a render or write failure.
type GenerationError struct {
	Path string
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Path == "" {
		return "complaint generation failed: " + e.Err.Error()
	}
	return fmt.Sprintf("complaint generation failed for %s: %v", e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options configures a Generator. Empty text fields take the defaults in
// package config.
type Options struct {
	OutputPath string
	Title      string
	Location   string
	Recipient  string
	Citation   string
	Action     string
	// FontPath is a UTF-8 TrueType font used for every line. Without it
	// only Windows-1252 text can be rendered.
	FontPath string
	// Clock supplies the generation time. Defaults to time.Now.
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Generator builds and writes complaints.
type Generator struct {
	opts Options
}

// New creates a Generator.
func New(opts Options) *Generator {
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	opts.Title = orDefault(opts.Title, config.DefaultComplaintTitle)
	opts.Location = orDefault(opts.Location, config.DefaultLocation)
	opts.Recipient = orDefault(opts.Recipient, config.DefaultRecipient)
	opts.Citation = orDefault(opts.Citation, config.DefaultCitation)
	opts.Action = orDefault(opts.Action, config.DefaultAction)
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{opts: opts}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Record stamps transcript with the current time and the configured labels.
func (g *Generator) Record(transcript string) Record {
	return Record{
		Title:      g.opts.Title,
		Time:       g.opts.Clock(),
		Location:   g.opts.Location,
		Recipient:  g.opts.Recipient,
		Transcript: transcript,
		Citation:   g.opts.Citation,
		Action:     g.opts.Action,
	}
}

// Generate renders a complaint for transcript and writes it to the output
// path, replacing any previous file there. The write is atomic, so
// concurrent calls never leave a torn file; the last rename wins.
func (g *Generator) Generate(ctx context.Context, transcript string) (*Artifact, error) {
	_, span := observability.StartComplaintSpan(ctx)
	defer span.End()

	path := g.opts.OutputPath
	data, err := Render(g.Record(transcript), g.opts.FontPath)
	if err != nil {
		observability.RecordError(span, err)
		return nil, &GenerationError{Path: path, Err: err}
	}
	if err := writeAtomic(path, data); err != nil {
		observability.RecordError(span, err)
		g.opts.Logger.Error("writing complaint", "path", path, "error", err)
		return nil, &GenerationError{Path: path, Err: err}
	}

	g.opts.Metrics.RecordComplaint()
	g.opts.Logger.Info("complaint generated", "path", path, "bytes", len(data))
	return &Artifact{Name: filepath.Base(path), Path: path, Data: data}, nil
}

// Render lays out rec as a single-page A4 document. With an empty fontPath
// the built-in Arial is used and text it cannot encode is refused with
// ErrUnsupportedText rather than replaced.
func Render(rec Record, fontPath string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCreationDate(rec.Time)
	pdf.SetModificationDate(rec.Time)
	pdf.SetTitle(rec.Title, true)

	family := "Arial"
	tr := func(s string) string { return s }
	if fontPath != "" {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8Font(unicodeFamily, style, fontPath)
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("loading font %s: %w", fontPath, err)
		}
		family = unicodeFamily
	} else {
		if err := checkEncodable(rec); err != nil {
			return nil, err
		}
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 10, tr(rec.Title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 10, "Date: "+rec.Time.Format(TimeLayout), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, tr("Location: "+rec.Location), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, tr("To: "+rec.Recipient), "", 1, "", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 10, "Incident Transcript / Evidence:", "", 1, "", false, 0, "")
	pdf.SetFont(family, "", 11)
	pdf.MultiCell(0, 10, tr("Citizen's Statement: "+rec.Transcript), "", "", false)
	pdf.Ln(5)

	pdf.SetFont(family, "I", 10)
	pdf.MultiCell(0, 10, tr(rec.Citation), "", "", false)
	pdf.Ln(10)

	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 10, tr("Action Requested: "+rec.Action), "", 1, "", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// checkEncodable reports the first record field that Windows-1252 cannot
// hold, since the core fonts would print it as dots.
func checkEncodable(rec Record) error {
	enc := charmap.Windows1252.NewEncoder()
	fields := []struct{ name, text string }{
		{"title", rec.Title},
		{"location", rec.Location},
		{"recipient", rec.Recipient},
		{"transcript", rec.Transcript},
		{"citation", rec.Citation},
		{"action", rec.Action},
	}
	for _, f := range fields {
		if _, err := enc.String(f.text); err != nil {
			return fmt.Errorf("%s: %w", f.name, ErrUnsupportedText)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".complaint-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
