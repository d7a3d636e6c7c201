// Package indexer loads documents, splits them into overlapping character
// windows, embeds the windows and writes a fresh vector store.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
)

// Splitter cuts text into fixed windows of Size runes that start every Size-Overlap runes.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter returns a splitter; overlap must be in [0, size).
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the windows of doc in order. Windows that are entirely
// whitespace are dropped without shifting the offsets of the others.
func (s *Splitter) Split(doc *models.Document) []*models.Chunk {
	runes := []rune(doc.Content)
	step := s.size - s.overlap

	var chunks []*models.Chunk
	for start := 0; start < len(runes); start += step {
		end := min(start+s.size, len(runes))
		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			idx := len(chunks)
			chunks = append(chunks, &models.Chunk{
				ID:         fileid.ChunkID(doc.ID, idx),
				DocumentID: doc.ID,
				Source:     doc.Source,
				Content:    text,
				StartIndex: start,
				ChunkIndex: idx,
			})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// SplitDocuments splits every document, preserving document order.
func (s *Splitter) SplitDocuments(docs []*models.Document) []*models.Chunk {
	var chunks []*models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.Split(doc)...)
	}
	return chunks
}
