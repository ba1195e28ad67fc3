// Package rerank provides cross-encoder relevance scoring for (query, text) pairs.
package rerank

import "context"

// CrossEncoder scores each (query, text) pair jointly. Joint encoding is
// more accurate than the independent dense/sparse scores but costs one
// model call per candidate, so it runs only on the fused, filtered
// candidate set.
type CrossEncoder interface {
	// Score returns one relevance score per text, higher is more relevant.
	// An empty texts slice returns an empty result without touching the
	// model (a zero-length batch is invalid for the runtime).
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
	Close() error
}
