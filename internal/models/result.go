package models

// RetrievalResult is one nearest-neighbour hit. Score is cosine similarity in [-1, 1].
type RetrievalResult struct {
	ChunkID    string  `json:"chunk_id"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	StartIndex int     `json:"start_index"`
	Score      float64 `json:"score"`
}

// SourceRef attributes part of an answer to a document.
type SourceRef struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Answer is the outcome of a question. NoContext is set when retrieval found
// nothing relevant and the model was not called.
type Answer struct {
	Query     string      `json:"query"`
	Text      string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	NoContext bool        `json:"no_context"`
}

// KeywordHit is a chunk matched by the keyword index.
type KeywordHit struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// StoreStats summarises a built vector store.
type StoreStats struct {
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	Embedder   string `json:"embedder"`
	Metric     string `json:"metric"`
	BuiltAt    string `json:"built_at"`
	DiskBytes  int64  `json:"disk_bytes"`
}
