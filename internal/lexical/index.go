// Package lexical provides BM25-style keyword indexing and search over chunk text.
package lexical

import (
	"context"

	"github.com/kasetai/khonha/internal/models"
)

// Index defines lexical search operations. Term statistics are fixed at
// index-build time; queries never mutate the corpus.
type Index interface {
	Index(ctx context.Context, chunk *models.Chunk) error
	IndexBatch(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, k int) ([]*Result, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single lexical search hit (ID is the chunk ID).
type Result struct {
	ID    string
	Score float64
}
