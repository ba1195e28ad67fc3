// Package embedding provides text embedding via ONNX and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Embeddings are
// deterministic for a fixed model: the same text always yields the same
// vector. At query time only the incoming query is embedded; chunk
// embeddings were computed once at index-build time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
