// Package chunk splits extracted document text into fixed-size segments.
package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidSize is returned when the chunk size is not positive.
var ErrInvalidSize = errors.New("chunk size must be positive")

// Chunk is a contiguous substring of a document.
type Chunk struct {
	Label string `json:"label"`
	Seq   int    `json:"seq"`
	Text  string `json:"text"`
}

// ID returns the chunk identifier, unique per (label, seq).
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:%d", c.Label, c.Seq)
}

// Split cuts text into consecutive pieces of size runes. Every piece but the
// last has exactly size runes; the pieces concatenate back to text. Word and
// sentence boundaries are ignored.
func Split(text string, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if text == "" {
		return nil, nil
	}

	out := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, n := 0, 0
	for i := range text {
		if n == size {
			out = append(out, text[start:i])
			start, n = i, 0
		}
		n++
	}
	out = append(out, text[start:])
	return out, nil
}

// Document splits text into labelled chunks numbered from zero.
func Document(label, text string, size int) ([]Chunk, error) {
	pieces, err := Split(text, size)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{Label: label, Seq: i, Text: p}
	}
	return chunks, nil
}
