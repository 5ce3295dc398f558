// Package metrics collects the per-run report for an ingestion.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// IngestMetrics collects statistics for one ingestion run.
type IngestMetrics struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ms,omitempty"`
	Source     SourceMetrics `json:"source"`
	Chunks     ChunkMetrics  `json:"chunks"`
	Index      IndexMetrics  `json:"index"`
	Errors     []string      `json:"errors,omitempty"`
}

type SourceMetrics struct {
	Path   string `json:"path"`
	Label  string `json:"label"`
	Format string `json:"format"`
	Pages  int    `json:"pages,omitempty"`
	Bytes  int64  `json:"bytes"`
	Chars  int    `json:"chars"`
}

type ChunkMetrics struct {
	Size     int `json:"size"`
	Count    int `json:"count"`
	Shortest int `json:"shortest"`
	Longest  int `json:"longest"`
}

type IndexMetrics struct {
	Backend string `json:"backend"`
	Reset   bool   `json:"reset"`
	Before  int    `json:"entries_before"`
	After   int    `json:"entries_after"`
}

// New starts tracking an ingestion run.
func New() *IngestMetrics {
	return &IngestMetrics{StartedAt: time.Now()}
}

// CollectChunks records chunk statistics from the chunk texts, measured in
// characters.
func (m *IngestMetrics) CollectChunks(size int, texts []string) {
	m.Chunks = ChunkMetrics{Size: size, Count: len(texts)}
	for i, t := range texts {
		n := len([]rune(t))
		if i == 0 || n < m.Chunks.Shortest {
			m.Chunks.Shortest = n
		}
		if n > m.Chunks.Longest {
			m.Chunks.Longest = n
		}
	}
}

// AddError records a non-fatal problem.
func (m *IngestMetrics) AddError(err error) {
	m.Errors = append(m.Errors, err.Error())
}

// Finish marks the run as complete.
func (m *IngestMetrics) Finish() {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
}

// Added returns how many entries the run put into the index.
func (m *IngestMetrics) Added() int {
	return m.Index.After - m.Index.Before
}

// PrintSummary writes a human-readable summary.
func (m *IngestMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║       PRAMAANX INGESTION REPORT      ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s ║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ SOURCE (%s)\n", m.Source.Format)
	fmt.Fprintf(w, "║   Path:        %s\n", m.Source.Path)
	fmt.Fprintf(w, "║   Label:       %s\n", m.Source.Label)
	if m.Source.Pages > 0 {
		fmt.Fprintf(w, "║   Pages:       %d\n", m.Source.Pages)
	}
	fmt.Fprintf(w, "║   Size:        %s\n", formatBytes(m.Source.Bytes))
	fmt.Fprintf(w, "║   Characters:  %d\n", m.Source.Chars)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ CHUNKS (size %d)\n", m.Chunks.Size)
	fmt.Fprintf(w, "║   Count:       %d\n", m.Chunks.Count)
	fmt.Fprintf(w, "║   Shortest:    %d\n", m.Chunks.Shortest)
	fmt.Fprintf(w, "║   Longest:     %d\n", m.Chunks.Longest)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ INDEX (%s)\n", m.Index.Backend)
	if m.Index.Reset {
		fmt.Fprintf(w, "║   Reset:       yes\n")
	}
	fmt.Fprintf(w, "║   Before:      %d\n", m.Index.Before)
	fmt.Fprintf(w, "║   After:       %d\n", m.Index.After)
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (m *IngestMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
