// Package cli formats kotae command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// NoMatchText is printed when a question has no relevant context.
const NoMatchText = "No good match found in the documents."

// ParseOutputFormat accepts "text" or "json" (case-insensitive); empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OutputText):
		return OutputText, nil
	case string(OutputJSON):
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes the answer and its sources, or NoMatchText when there was no context.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	if answer.NoContext {
		_, err := fmt.Fprintln(w, NoMatchText)
		return err
	}
	fmt.Fprintf(w, "\nResponse:\n%s\n", answer.Text)
	fmt.Fprintf(w, "\nSources:\n")
	for _, s := range answer.Sources {
		fmt.Fprintf(w, "  %s (%.4f)\n", s.Source, s.Score)
	}
	return nil
}

// WriteBuildSummary writes the two summary lines of an index build.
func WriteBuildSummary(w io.Writer, stats indexer.BuildStats) {
	fmt.Fprintf(w, "Split %d documents into %d chunks.\n", stats.Documents, stats.Chunks)
	fmt.Fprintf(w, "Saved %d chunks to %s.\n", stats.Chunks, stats.Directory)
}

// WriteStatus writes store statistics.
func WriteStatus(w io.Writer, dir string, stats models.StoreStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Directory string `json:"directory"`
			models.StoreStats
		}{dir, stats})
	}
	fmt.Fprintf(w, "Store:      %s\n", dir)
	fmt.Fprintf(w, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(w, "Chunks:     %d\n", stats.Chunks)
	fmt.Fprintf(w, "Embedder:   %s (%d dimensions, %s)\n", stats.Embedder, stats.Dimensions, stats.Metric)
	if stats.BuiltAt != "" {
		fmt.Fprintf(w, "Built at:   %s\n", stats.BuiltAt)
	}
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(stats.DiskBytes))
	return nil
}

// WriteKeywordHits writes keyword matches with a one-line preview of each chunk.
func WriteKeywordHits(w io.Writer, terms string, hits []models.KeywordHit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []models.KeywordHit{}
		}
		return writeJSON(w, hits)
	}
	fmt.Fprintf(w, "\nFound %d chunks matching %q\n\n", len(hits), terms)
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, h.Source, h.Score)
		fmt.Fprintf(w, "   %s\n", utils.Truncate(utils.SingleLine(h.Content), 200))
	}
	return nil
}

// WriteComparison writes the vector length and the cosine similarity of two texts.
func WriteComparison(w io.Writer, a, b string, length int, similarity float64) {
	fmt.Fprintf(w, "Vector length: %d\n", length)
	fmt.Fprintf(w, "Cosine similarity between '%s' and '%s': %.4f\n", a, b, similarity)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
