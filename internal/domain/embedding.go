package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// DefaultEmbedCap is the maximum input length in bytes sent to the
// embedding provider. The same cap is applied when indexing chunks and
// when embedding queries so vectors stay comparable.
const DefaultEmbedCap = 8000

// TruncateForEmbedding cuts text to at most limit bytes, backing up to
// the previous rune boundary so a multi-byte character is never split.
func TruncateForEmbedding(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}

// TruncatingEmbedder is a domain decorator that caps input length
// before delegating to the inner embedder.
type TruncatingEmbedder struct {
	inner Embedder
	limit int
}

// NewTruncatingEmbedder creates a decorator that truncates input to limit bytes.
func NewTruncatingEmbedder(inner Embedder, limit int) *TruncatingEmbedder {
	if limit <= 0 {
		limit = DefaultEmbedCap
	}
	return &TruncatingEmbedder{inner: inner, limit: limit}
}

// Embed truncates and delegates to the inner embedder.
func (e *TruncatingEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, TruncateForEmbedding(text, e.limit))
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("truncating embed: %w", err)
	}
	return result, nil
}
