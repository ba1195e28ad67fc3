// Package artifact manages lazy loading and caching of the retrieval
// artifacts: chunk store, embedder, vector index, lexical index, and
// cross-encoder. Nothing is loaded at startup; each artifact is built on
// first access and reused until invalidated.
package artifact

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/config"
	"github.com/kasetai/khonha/internal/embedding"
	"github.com/kasetai/khonha/internal/lexical"
	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/rerank"
	"github.com/kasetai/khonha/internal/storage"
	"github.com/kasetai/khonha/internal/vector"
)

// State is the lifecycle state of one artifact.
type State string

const (
	StateUnloaded State = "UNLOADED"
	StateLoading  State = "LOADING"
	StateLoaded   State = "LOADED"
)

// Artifact names, as exposed by States and accepted by Invalidate.
const (
	NameChunkStore   = "chunk_store"
	NameEmbedder     = "embedder"
	NameVectorIndex  = "vector_index"
	NameLexicalIndex = "lexical_index"
	NameCrossEncoder = "cross_encoder"
)

var artifactNames = []string{
	NameChunkStore, NameEmbedder, NameVectorIndex, NameLexicalIndex, NameCrossEncoder,
}

// handle guards one artifact. The mutex is held for the whole build, so
// the first accessor builds and every concurrent accessor blocks until the
// build finishes; state is read atomically for status reporting while a
// build is in flight.
type handle struct {
	mu    chanMutex
	state atomic.Value // State
	value any
}

func newHandle() *handle {
	h := &handle{mu: make(chanMutex, 1)}
	h.state.Store(StateUnloaded)
	return h
}

func (h *handle) getState() State {
	return h.state.Load().(State)
}

// chanMutex is a mutex that supports context-aware locking, so a caller
// whose request is cancelled stops waiting for someone else's build.
type chanMutex chan struct{}

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }

// Factories build artifacts on first access. Tests override individual
// entries to substitute mocks for the ONNX-backed components.
type Factories struct {
	ChunkStore   func(ctx context.Context, m *Manager) (storage.ChunkStore, error)
	Embedder     func(ctx context.Context, m *Manager) (embedding.Embedder, error)
	VectorIndex  func(ctx context.Context, m *Manager) (vector.Index, error)
	LexicalIndex func(ctx context.Context, m *Manager) (lexical.Index, error)
	CrossEncoder func(ctx context.Context, m *Manager) (rerank.CrossEncoder, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithFactories overrides the non-nil entries of f.
func WithFactories(f Factories) Option {
	return func(m *Manager) {
		if f.ChunkStore != nil {
			m.factories.ChunkStore = f.ChunkStore
		}
		if f.Embedder != nil {
			m.factories.Embedder = f.Embedder
		}
		if f.VectorIndex != nil {
			m.factories.VectorIndex = f.VectorIndex
		}
		if f.LexicalIndex != nil {
			m.factories.LexicalIndex = f.LexicalIndex
		}
		if f.CrossEncoder != nil {
			m.factories.CrossEncoder = f.CrossEncoder
		}
	}
}

// Manager owns the artifact cache. Safe for concurrent use.
type Manager struct {
	cfg       *config.Config
	logger    *zap.Logger
	handles   map[string]*handle
	factories Factories
}

// NewManager creates an artifact manager. Nothing is loaded until first access.
func NewManager(cfg *config.Config, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		handles: make(map[string]*handle, len(artifactNames)),
	}
	for _, name := range artifactNames {
		m.handles[name] = newHandle()
	}
	m.factories = defaultFactories()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// get returns the cached artifact, building it under the handle mutex if
// needed. A failed build leaves the handle UNLOADED so the next access
// retries from scratch; the manager never caches a failure or substitutes
// an empty artifact.
func (m *Manager) get(ctx context.Context, name string, build func(ctx context.Context) (any, error)) (any, error) {
	h := m.handles[name]
	if err := h.mu.lock(ctx); err != nil {
		return nil, &models.IndexUnavailableError{Artifact: name, Err: err}
	}
	defer h.mu.unlock()

	if h.value != nil {
		return h.value, nil
	}

	h.state.Store(StateLoading)
	m.logger.Info("loading artifact", zap.String("artifact", name))
	value, err := build(ctx)
	if err != nil {
		h.state.Store(StateUnloaded)
		m.logger.Error("artifact load failed", zap.String("artifact", name), zap.Error(err))
		return nil, &models.IndexUnavailableError{Artifact: name, Err: err}
	}
	h.value = value
	h.state.Store(StateLoaded)
	m.logger.Info("artifact loaded", zap.String("artifact", name))
	return value, nil
}

// ChunkStore returns the chunk database, opening it on first access.
func (m *Manager) ChunkStore(ctx context.Context) (storage.ChunkStore, error) {
	v, err := m.get(ctx, NameChunkStore, func(ctx context.Context) (any, error) {
		return m.factories.ChunkStore(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(storage.ChunkStore), nil
}

// Embedder returns the query embedder, loading the model on first access.
func (m *Manager) Embedder(ctx context.Context) (embedding.Embedder, error) {
	v, err := m.get(ctx, NameEmbedder, func(ctx context.Context) (any, error) {
		return m.factories.Embedder(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(embedding.Embedder), nil
}

// VectorIndex returns the dense index, loading or rebuilding it on first access.
func (m *Manager) VectorIndex(ctx context.Context) (vector.Index, error) {
	v, err := m.get(ctx, NameVectorIndex, func(ctx context.Context) (any, error) {
		return m.factories.VectorIndex(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(vector.Index), nil
}

// LexicalIndex returns the keyword index, opening or rebuilding it on first access.
func (m *Manager) LexicalIndex(ctx context.Context) (lexical.Index, error) {
	v, err := m.get(ctx, NameLexicalIndex, func(ctx context.Context) (any, error) {
		return m.factories.LexicalIndex(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(lexical.Index), nil
}

// CrossEncoder returns the reranker, loading the model on first access.
func (m *Manager) CrossEncoder(ctx context.Context) (rerank.CrossEncoder, error) {
	v, err := m.get(ctx, NameCrossEncoder, func(ctx context.Context) (any, error) {
		return m.factories.CrossEncoder(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return v.(rerank.CrossEncoder), nil
}

// States reports the current lifecycle state of every artifact.
func (m *Manager) States() map[string]State {
	states := make(map[string]State, len(m.handles))
	for name, h := range m.handles {
		states[name] = h.getState()
	}
	return states
}

// Invalidate drops one artifact: in-flight accesses finish first, the
// cached value is closed, and for derived indexes the persisted files are
// removed so the next access rebuilds from the database. Model files are
// never touched.
//
// The handle lock serializes Invalidate against accessors, not against
// pipeline stages already running: a query that fetched the artifact before
// invalidation may still hold the reference when Close lands, and its next
// use of the artifact fails. That failure surfaces as the stage's typed
// error for that call only; the next request loads the rebuilt artifact.
// Accepted over refcounting since invalidation means the data the query
// was using is already stale.
func (m *Manager) Invalidate(ctx context.Context, name string) error {
	h, ok := m.handles[name]
	if !ok {
		return fmt.Errorf("unknown artifact %q", name)
	}
	if err := h.mu.lock(ctx); err != nil {
		return err
	}
	defer h.mu.unlock()

	if h.value != nil {
		if closer, ok := h.value.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				m.logger.Warn("close during invalidation failed",
					zap.String("artifact", name), zap.Error(err))
			}
		}
		h.value = nil
	}
	h.state.Store(StateUnloaded)

	switch name {
	case NameVectorIndex:
		p := m.cfg.Storage.VectorIndexPath
		removeAll(m.logger, p, p+".faiss", p+".idmap", fingerprintPath(p))
	case NameLexicalIndex:
		removeAll(m.logger, m.cfg.Storage.BleveIndexPath, fingerprintPath(m.cfg.Storage.BleveIndexPath))
	}
	m.logger.Info("artifact invalidated", zap.String("artifact", name))
	return nil
}

// InvalidateAll drops every artifact.
func (m *Manager) InvalidateAll(ctx context.Context) error {
	for _, name := range artifactNames {
		if err := m.Invalidate(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// DiskUsage returns the bytes used by the database and the persisted indexes.
func (m *Manager) DiskUsage() (int64, error) {
	return storage.DiskUsageBytes(
		m.cfg.Storage.DatabasePath,
		m.cfg.Storage.BleveIndexPath,
		m.cfg.Storage.VectorIndexPath,
	)
}

// Close releases all loaded artifacts without touching persisted files.
func (m *Manager) Close() error {
	ctx := context.Background()
	var firstErr error
	for _, name := range artifactNames {
		h := m.handles[name]
		if err := h.mu.lock(ctx); err != nil {
			return err
		}
		if h.value != nil {
			if closer, ok := h.value.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			h.value = nil
		}
		h.state.Store(StateUnloaded)
		h.mu.unlock()
	}
	return firstErr
}

func fingerprintPath(artifactPath string) string {
	return artifactPath + ".fp"
}

func removeAll(logger *zap.Logger, paths ...string) {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			logger.Warn("failed to remove derived file", zap.String("path", p), zap.Error(err))
		}
	}
}
