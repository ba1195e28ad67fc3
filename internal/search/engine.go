// Package search implements the hybrid retrieval pipeline: dense and
// lexical search run in parallel, their results are fused, filtered, and
// reranked by a cross-encoder, then formatted for prompt assembly.
package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/config"
	"github.com/kasetai/khonha/internal/embedding"
	"github.com/kasetai/khonha/internal/lexical"
	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/rerank"
	"github.com/kasetai/khonha/internal/storage"
	"github.com/kasetai/khonha/internal/vector"
)

// Artifacts provides the lazily loaded components the pipeline depends on.
// Each accessor may load the artifact on first use and fails with
// *models.IndexUnavailableError when it cannot.
type Artifacts interface {
	ChunkStore(ctx context.Context) (storage.ChunkStore, error)
	Embedder(ctx context.Context) (embedding.Embedder, error)
	VectorIndex(ctx context.Context) (vector.Index, error)
	LexicalIndex(ctx context.Context) (lexical.Index, error)
	CrossEncoder(ctx context.Context) (rerank.CrossEncoder, error)
}

// Engine runs retrieval queries end to end. It is stateless across queries
// and safe for concurrent use; all shared state lives in the artifacts.
type Engine struct {
	artifacts Artifacts
	cfg       *config.Config
	logger    *zap.Logger
}

// NewEngine creates a search engine over the given artifacts.
func NewEngine(artifacts Artifacts, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		artifacts: artifacts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Search executes the full pipeline for one query and returns the formatted
// context string. A query matching nothing returns NoResultsMessage with a
// nil error; errors are reserved for component failures.
func (e *Engine) Search(ctx context.Context, query *models.RetrievalQuery) (string, error) {
	if err := query.Validate(e.cfg.Search.MaxQueryChars, e.cfg.Rerank.TopN); err != nil {
		return "", err
	}

	embedder, err := e.artifacts.Embedder(ctx)
	if err != nil {
		return "", err
	}
	queryVector, err := embedder.Embed(ctx, query.Query)
	if err != nil {
		return "", &models.EmbeddingError{Err: err}
	}

	k := e.cfg.Search.TopKCandidates
	dense, sparse, err := e.retrieve(ctx, query.Query, queryVector, k)
	if err != nil {
		return "", err
	}
	e.logger.Debug("retrieval done",
		zap.Int("dense_hits", len(dense)),
		zap.Int("sparse_hits", len(sparse)))

	fused := Fuse(dense, sparse, e.cfg.Search.DenseWeight, e.cfg.Search.SparseWeight)
	candidates, err := e.materialize(ctx, fused)
	if err != nil {
		return "", err
	}
	candidates = FilterByCategory(candidates, query.Category)
	if len(candidates) == 0 {
		return NoResultsMessage, nil
	}

	encoder, err := e.artifacts.CrossEncoder(ctx)
	if err != nil {
		return "", err
	}
	ranked, err := RerankCandidates(ctx, encoder, query.Query, candidates, query.TopN)
	if err != nil {
		return "", err
	}
	e.logger.Debug("rerank done",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(ranked)))

	return Format(ranked, e.cfg.Search.ExcerptChars), nil
}

// retrieve runs the dense and lexical searches concurrently. Both branches
// must succeed: degrading to single-mode retrieval would silently change
// result quality, so any branch error fails the query.
func (e *Engine) retrieve(ctx context.Context, queryText string, queryVector []float32, k int) ([]*vector.Result, []*lexical.Result, error) {
	var (
		wg     sync.WaitGroup
		dense  []*vector.Result
		sparse []*lexical.Result
	)
	errChan := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		idx, err := e.artifacts.VectorIndex(ctx)
		if err != nil {
			errChan <- err
			return
		}
		results, err := idx.Search(ctx, queryVector, k)
		if err != nil {
			errChan <- fmt.Errorf("dense search failed: %w", err)
			return
		}
		dense = results
	}()
	go func() {
		defer wg.Done()
		idx, err := e.artifacts.LexicalIndex(ctx)
		if err != nil {
			errChan <- err
			return
		}
		results, err := idx.Search(ctx, queryText, k)
		if err != nil {
			errChan <- fmt.Errorf("lexical search failed: %w", err)
			return
		}
		sparse = results
	}()
	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, nil, err
	}
	return dense, sparse, nil
}

// materialize loads the chunk for each fused candidate. A chunk ID present
// in an index but missing from the store means the indexes are ahead of the
// database; the candidate is dropped with a warning rather than failing the
// whole query.
func (e *Engine) materialize(ctx context.Context, fused []*FusedCandidate) ([]*models.Candidate, error) {
	store, err := e.artifacts.ChunkStore(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]*models.Candidate, 0, len(fused))
	for _, f := range fused {
		chunk, err := store.GetChunk(ctx, f.ID)
		if err != nil {
			e.logger.Warn("chunk missing from store, dropping candidate",
				zap.String("chunk_id", f.ID),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, &models.Candidate{Chunk: chunk, Score: f.Score})
	}
	return candidates, nil
}
