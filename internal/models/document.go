// Package models defines core data structures for documents, chunks, retrieval results, and answers.
package models

// Document is a source file loaded from the data directory.
// Source is the path relative to the data directory, slash separated.
type Document struct {
	ID      string `json:"id" db:"id"`
	Source  string `json:"source" db:"source"`
	Content string `json:"content" db:"content"`
}

// Chunk is a window of a document's text. StartIndex counts runes from the
// beginning of the document content.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Source     string `json:"source" db:"source"`
	Content    string `json:"content" db:"content"`
	StartIndex int    `json:"start_index" db:"start_index"`
	ChunkIndex int    `json:"chunk_index" db:"chunk_index"`
}

// IndexEntry pairs a chunk with its embedding. Written once at build time.
type IndexEntry struct {
	Chunk     *Chunk
	Embedding []float32
}
