// Package vector stores embedded chunks and answers nearest-neighbour
// queries over them.
package vector

import "context"

// Entry is a chunk together with its embedding and source metadata.
type Entry struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Match is a single result of a nearest-neighbour search. Distance is the
// Euclidean distance between the query and the entry embeddings.
type Match struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Distance float32           `json:"distance"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Source returns the provenance label recorded at ingestion.
func (m Match) Source() string {
	return m.Metadata[MetaSource]
}

// Metadata keys written at ingestion.
const (
	MetaSource = "source"
	MetaSeq    = "seq"
)

// Repository is a vector storage backend.
type Repository interface {
	// Insert stores entries atomically: either all become visible or none
	// do. An id that already exists fails with ErrDuplicateID.
	Insert(ctx context.Context, entries []Entry) error
	// Existing returns which of the given ids are already stored.
	Existing(ctx context.Context, ids []string) ([]string, error)
	// Search returns up to k entries nearest to vec, nearest first. An empty
	// store yields an empty result.
	Search(ctx context.Context, vec []float32, k int) ([]Match, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
	// Reset removes every entry.
	Reset(ctx context.Context) error
	// Close releases resources.
	Close() error
}
