// Package vector provides vector index and similarity search.
package vector

import "context"

// Index defines vector storage and similarity search over chunk embeddings.
// The index is immutable at query time: chunks are added once when the index
// is built and the whole index is replaced on rebuild, never edited in place.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Type() string
	Close() error
}

// Result is a single vector search hit (ID is the chunk ID).
type Result struct {
	ID    string
	Score float64 // Inner product; equals cosine similarity for normalized vectors
}
