// Package storage provides vector index backends for chunk retrieval:
// a flat file-backed index with exact L2 scan (the default) and a
// Qdrant-backed alternative for larger corpora.
package storage

import (
	"math"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
)

// Result is a single nearest-neighbor hit.
type Result struct {
	Text     string
	Metadata chunker.Metadata
	ID       string
	Distance float64
}

// VectorStore stores embeddings with their chunk payloads and returns
// nearest neighbors by distance, ascending.
type VectorStore interface {
	// Add appends entries. vectors, metadatas and texts must have equal
	// length; when ids is nil, sequential string IDs continuing from the
	// current size are assigned.
	Add(vectors [][]float32, metadatas []chunker.Metadata, texts []string, ids []string) error

	// Search returns up to topK nearest entries to the query vector.
	// Fewer than topK stored entries returns all of them.
	Search(query []float32, topK int) ([]Result, error)

	// Count reports the number of stored entries.
	Count() int

	// Clear resets the index to empty.
	Clear() error

	// Close releases backend resources.
	Close() error
}

// Confidence converts an L2 distance to the similarity signal exposed
// to callers: 1 - distance, rounded to 4 decimals. This is not a
// probability — it can go negative for distances above 1 — and must be
// treated as a relative ranking signal only.
func Confidence(distance float64) float64 {
	return math.Round((1-distance)*10000) / 10000
}
