package embedding

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HashingEmbedder is an offline embedder: each lowercase content word is hashed
// into a signed bucket and the result is L2-normalized. Stopwords are skipped.
// Texts sharing words score high under cosine similarity; same text always gets
// the same embedding.
//
// Scores are lexical. A short question against a long narrative chunk shares one
// or two words, so it usually scores below the default 0.3 cutoff that sentence
// models clear. Use it for tests and offline runs, with a lower
// retrieval.min_relevance, not as a stand-in for all-minilm.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a feature-hashing embedder of the given dimensions.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the hashed bag-of-words vector for text.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range ContentWords(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		if sum&(1<<63) != 0 {
			emb[idx]--
		} else {
			emb[idx]++
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "hashing:<dimensions>".
func (e *HashingEmbedder) Name() string {
	return "hashing:" + strconv.Itoa(e.dimensions)
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}
