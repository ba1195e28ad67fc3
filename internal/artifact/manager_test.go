package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/config"
	"github.com/kasetai/khonha/internal/embedding"
	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/rerank"
	"github.com/kasetai/khonha/internal/storage"
	"github.com/kasetai/khonha/internal/vector"
)

const testDims = 32

func testSetup(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = testDims
	cfg.Storage.DatabasePath = filepath.Join(dir, "chunks.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")

	store, err := storage.New(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	embedder := embedding.NewMockEmbedder(testDims)
	var chunks []*models.Chunk
	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("การปลูกอ้อยแปลงที่ %d ต้องเตรียมดินก่อนฤดูฝน", i)
		emb, err := embedder.Embed(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, &models.Chunk{
			ID:        fmt.Sprintf("chunk-%d", i),
			Text:      text,
			Source:    "manual.pdf",
			Embedding: emb,
		})
	}
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func mockFactories() Factories {
	return Factories{
		Embedder: func(ctx context.Context, m *Manager) (embedding.Embedder, error) {
			return embedding.NewMockEmbedder(testDims), nil
		},
		CrossEncoder: func(ctx context.Context, m *Manager) (rerank.CrossEncoder, error) {
			return &rerank.MockCrossEncoder{}, nil
		},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithFactories(mockFactories())}, opts...)
	m := NewManager(cfg, zap.NewNop(), opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestLazyLoadOnFirstAccess(t *testing.T) {
	cfg := testSetup(t)
	m := newTestManager(t, cfg)
	ctx := context.Background()

	if m.States()[NameVectorIndex] != StateUnloaded {
		t.Fatal("vector index must start UNLOADED")
	}
	idx, err := m.VectorIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 5 {
		t.Errorf("expected 5 vectors, got %d", idx.Size())
	}
	if m.States()[NameVectorIndex] != StateLoaded {
		t.Error("vector index must be LOADED after access")
	}
	// Other artifacts stay untouched.
	if m.States()[NameCrossEncoder] != StateUnloaded {
		t.Error("cross-encoder must not load as a side effect")
	}
}

func TestConcurrentFirstAccessBuildsOnce(t *testing.T) {
	cfg := testSetup(t)
	var builds atomic.Int32
	m := newTestManager(t, cfg, WithFactories(Factories{
		VectorIndex: func(ctx context.Context, mgr *Manager) (vector.Index, error) {
			builds.Add(1)
			time.Sleep(50 * time.Millisecond)
			return vector.NewMemoryIndex(testDims)
		},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.VectorIndex(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := builds.Load(); got != 1 {
		t.Errorf("expected exactly 1 build, got %d", got)
	}
}

func TestFailedLoadRetries(t *testing.T) {
	cfg := testSetup(t)
	var attempts atomic.Int32
	m := newTestManager(t, cfg, WithFactories(Factories{
		VectorIndex: func(ctx context.Context, mgr *Manager) (vector.Index, error) {
			if attempts.Add(1) == 1 {
				return nil, errors.New("transient load failure")
			}
			return vector.NewMemoryIndex(testDims)
		},
	}))
	ctx := context.Background()

	_, err := m.VectorIndex(ctx)
	var unavailable *models.IndexUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *models.IndexUnavailableError, got %v", err)
	}
	if unavailable.Artifact != NameVectorIndex {
		t.Errorf("error must name the artifact, got %q", unavailable.Artifact)
	}
	if m.States()[NameVectorIndex] != StateUnloaded {
		t.Error("failed load must leave the artifact UNLOADED")
	}

	if _, err := m.VectorIndex(ctx); err != nil {
		t.Fatalf("second access must retry the build: %v", err)
	}
	if m.States()[NameVectorIndex] != StateLoaded {
		t.Error("retried load must end LOADED")
	}
}

func TestInvalidateRemovesDerivedFiles(t *testing.T) {
	cfg := testSetup(t)
	m := newTestManager(t, cfg)
	ctx := context.Background()

	if _, err := m.VectorIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Storage.VectorIndexPath); err != nil {
		t.Fatalf("vector index must be persisted after build: %v", err)
	}

	if err := m.Invalidate(ctx, NameVectorIndex); err != nil {
		t.Fatal(err)
	}
	if m.States()[NameVectorIndex] != StateUnloaded {
		t.Error("invalidated artifact must be UNLOADED")
	}
	if _, err := os.Stat(cfg.Storage.VectorIndexPath); !os.IsNotExist(err) {
		t.Error("invalidation must remove the persisted index")
	}

	// Next access rebuilds from the database.
	idx, err := m.VectorIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 5 {
		t.Errorf("rebuild must reindex all chunks, got %d", idx.Size())
	}
}

func TestInvalidateUnknownArtifact(t *testing.T) {
	cfg := testSetup(t)
	m := newTestManager(t, cfg)
	if err := m.Invalidate(context.Background(), "no_such_artifact"); err == nil {
		t.Fatal("expected error for unknown artifact")
	}
}

func TestStaleDatabaseTriggersRebuild(t *testing.T) {
	cfg := testSetup(t)
	ctx := context.Background()

	m1 := newTestManager(t, cfg)
	if _, err := m1.VectorIndex(ctx); err != nil {
		t.Fatal(err)
	}
	m1.Close()
	before := readFingerprint(fingerprintPath(cfg.Storage.VectorIndexPath))
	if before == "" {
		t.Fatal("fingerprint must be written alongside the persisted index")
	}

	// Simulate an offline rebuild of the database.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(cfg.Storage.DatabasePath, future, future); err != nil {
		t.Fatal(err)
	}

	m2 := newTestManager(t, cfg)
	if _, err := m2.VectorIndex(ctx); err != nil {
		t.Fatal(err)
	}
	after := readFingerprint(fingerprintPath(cfg.Storage.VectorIndexPath))
	if after == before {
		t.Error("rebuild must store the new database fingerprint")
	}
}

func TestPersistedIndexRoundTrip(t *testing.T) {
	cfg := testSetup(t)
	ctx := context.Background()

	m1 := newTestManager(t, cfg)
	idx1, err := m1.VectorIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	query, err := embedding.NewMockEmbedder(testDims).Embed(ctx, "การเตรียมดิน")
	if err != nil {
		t.Fatal(err)
	}
	first, err := idx1.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	m1.Close()

	// Second manager loads from disk instead of rebuilding.
	m2 := newTestManager(t, cfg)
	idx2, err := m2.VectorIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := idx2.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("result count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("rank %d differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestLexicalIndexBuildsFromDatabase(t *testing.T) {
	cfg := testSetup(t)
	m := newTestManager(t, cfg)
	ctx := context.Background()

	lex, err := m.LexicalIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	count, err := lex.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("expected 5 indexed chunks, got %d", count)
	}
	results, err := lex.Search(ctx, "เตรียมดิน", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Error("expected lexical hits for an indexed phrase")
	}
}

func TestMissingDatabaseFailsClosed(t *testing.T) {
	cfg := testSetup(t)
	if err := os.Remove(cfg.Storage.DatabasePath); err != nil {
		t.Fatal(err)
	}
	m := newTestManager(t, cfg)

	_, err := m.ChunkStore(context.Background())
	var unavailable *models.IndexUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *models.IndexUnavailableError, got %v", err)
	}
}
