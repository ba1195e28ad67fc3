// Package storage defines persistence for the prebuilt chunk index.
package storage

import (
	"context"

	"github.com/kasetai/khonha/internal/models"
)

// ChunkStore defines chunk persistence operations. The store is built
// offline; at query time it is read-only (the write operations exist for
// the offline build tools and test fixtures).
type ChunkStore interface {
	CreateChunk(ctx context.Context, chunk *models.Chunk) error
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)
	Close() error
}
