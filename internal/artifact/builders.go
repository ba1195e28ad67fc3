package artifact

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/embedding"
	"github.com/kasetai/khonha/internal/lexical"
	"github.com/kasetai/khonha/internal/rerank"
	"github.com/kasetai/khonha/internal/search"
	"github.com/kasetai/khonha/internal/storage"
	"github.com/kasetai/khonha/internal/vector"
)

func defaultFactories() Factories {
	return Factories{
		ChunkStore:   buildChunkStore,
		Embedder:     buildEmbedder,
		VectorIndex:  buildVectorIndex,
		LexicalIndex: buildLexicalIndex,
		CrossEncoder: buildCrossEncoder,
	}
}

func buildChunkStore(_ context.Context, m *Manager) (storage.ChunkStore, error) {
	return storage.Open(m.cfg.Storage.DatabasePath)
}

func buildEmbedder(_ context.Context, m *Manager) (embedding.Embedder, error) {
	e := m.cfg.Embedding
	return embedding.NewONNXEmbedder(e.ModelPath, e.Dimensions, e.MaxTokens, e.CacheSize)
}

func buildCrossEncoder(_ context.Context, m *Manager) (rerank.CrossEncoder, error) {
	r := m.cfg.Rerank
	return rerank.NewONNXCrossEncoder(r.ModelPath, r.MaxTokens)
}

// buildVectorIndex loads the persisted index when its stored fingerprint
// still matches the chunk database, otherwise rebuilds from the stored
// embeddings and persists the result. An empty database is an error: the
// pipeline must distinguish "no index" from "index of nothing".
func buildVectorIndex(ctx context.Context, m *Manager) (vector.Index, error) {
	dbFingerprint, err := Fingerprint(m.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	path := m.cfg.Storage.VectorIndexPath
	idx, err := vector.New(m.cfg.Search.VectorIndexType, m.cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}

	// The FAISS backend persists under path+".faiss", the memory backend
	// under path itself.
	persisted := false
	for _, p := range []string{path, path + ".faiss"} {
		if _, statErr := os.Stat(p); statErr == nil {
			persisted = true
			break
		}
	}
	if persisted {
		if readFingerprint(fingerprintPath(path)) == dbFingerprint {
			if loadErr := idx.Load(path); loadErr == nil {
				return idx, nil
			} else {
				m.logger.Warn("persisted vector index unreadable, rebuilding",
					zap.String("path", path), zap.Error(loadErr))
			}
		} else {
			m.logger.Info("vector index stale, rebuilding", zap.String("path", path))
		}
	}

	store, err := m.ChunkStore(ctx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	chunks, err := store.ListChunks(ctx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	if len(chunks) == 0 {
		idx.Close()
		return nil, fmt.Errorf("chunk database %s contains no chunks", m.cfg.Storage.DatabasePath)
	}

	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			idx.Close()
			return nil, fmt.Errorf("chunk %s has no stored embedding", c.ID)
		}
		ids = append(ids, c.ID)
		vectors = append(vectors, c.Embedding)
	}
	if err := idx.Add(ctx, ids, vectors); err != nil {
		idx.Close()
		return nil, err
	}

	if err := idx.Save(path); err != nil {
		m.logger.Warn("failed to persist vector index", zap.String("path", path), zap.Error(err))
	} else if err := writeFingerprint(fingerprintPath(path), dbFingerprint); err != nil {
		m.logger.Warn("failed to write vector index fingerprint", zap.Error(err))
	}
	m.logger.Info("vector index built", zap.Int("chunks", len(chunks)))
	return idx, nil
}

// buildLexicalIndex opens the persisted bleve index when its fingerprint is
// current, otherwise indexes every chunk from the database. Indexing the
// corpus in one batch keeps term statistics consistent.
func buildLexicalIndex(ctx context.Context, m *Manager) (lexical.Index, error) {
	dbFingerprint, err := Fingerprint(m.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	path := m.cfg.Storage.BleveIndexPath
	if _, statErr := os.Stat(path); statErr == nil {
		if readFingerprint(fingerprintPath(path)) != dbFingerprint {
			m.logger.Info("lexical index stale, rebuilding", zap.String("path", path))
			removeAll(m.logger, path, fingerprintPath(path))
		}
	}

	idx, err := lexical.NewBleveIndex(path)
	if err != nil {
		return nil, err
	}

	count, err := idx.DocCount()
	if err != nil {
		idx.Close()
		return nil, err
	}
	if count > 0 {
		return idx, nil
	}

	store, err := m.ChunkStore(ctx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	chunks, err := store.ListChunks(ctx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	if len(chunks) == 0 {
		idx.Close()
		removeAll(m.logger, path)
		return nil, fmt.Errorf("chunk database %s contains no chunks", m.cfg.Storage.DatabasePath)
	}
	if err := idx.IndexBatch(ctx, chunks); err != nil {
		idx.Close()
		return nil, err
	}
	if err := writeFingerprint(fingerprintPath(path), dbFingerprint); err != nil {
		m.logger.Warn("failed to write lexical index fingerprint", zap.Error(err))
	}
	m.logger.Info("lexical index built", zap.Int("chunks", len(chunks)))
	return idx, nil
}

var _ search.Artifacts = (*Manager)(nil)
