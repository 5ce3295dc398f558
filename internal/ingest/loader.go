package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for a source with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// ErrNoText is returned when a source yields no extractable text, as with a
// scanned PDF without a text layer.
var ErrNoText = errors.New("no extractable text")

// Document is the extracted text of a source file.
type Document struct {
	Path   string
	Label  string
	Format string
	Pages  int
	Bytes  int64
	Text   string
}

// Load extracts the text of the file at path. PDFs contribute one line per
// text row and a newline after each page; .txt and .md files are read as
// is.
func Load(path, label string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("opening source: %s is a directory", path)
	}
	if label == "" {
		label = filepath.Base(path)
	}

	doc := &Document{Path: path, Label: label, Bytes: info.Size()}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		doc.Format = "pdf"
		doc.Text, doc.Pages, err = readPDF(path)
	case ".txt", ".md", ".text":
		doc.Format = "text"
		var data []byte
		data, err = os.ReadFile(path)
		doc.Text = string(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrNoText
	}
	return doc, nil
}

func readPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		for j, row := range rows {
			if j > 0 {
				b.WriteByte('\n')
			}
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), pages, nil
}
