package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kasetai/khonha/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	if err == nil {
		t.Fatal("Open must fail for a missing database, not create an empty one")
	}
}

func TestOpenRejectsSchemalessDatabase(t *testing.T) {
	// An existing file without the chunks table must fail closed rather
	// than have the query path create the schema into it.
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("Open must fail for a database without the chunks schema")
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.CreateChunk(ctx, &models.Chunk{
		ID: "c1", Text: "การบำรุงตออ้อย", Source: "ratoon.pdf", Embedding: []float32{1},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed on a valid chunk database: %v", err)
	}
	defer reopened.Close()
	count, err := reopened.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 chunk after reopen, got %d", count)
	}
}

func TestCreateAndGetChunk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunk := &models.Chunk{
		ID:         "c1",
		Text:       "โรคใบขาวในอ้อยเกิดจากเชื้อไฟโตพลาสมา",
		Source:     "sugarcane-diseases.pdf",
		Categories: []string{"โรคและศัตรูพืช"},
		Embedding:  []float32{0.1, 0.2, 0.3},
	}
	if err := store.CreateChunk(ctx, chunk); err != nil {
		t.Fatalf("CreateChunk failed: %v", err)
	}

	got, err := store.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}
	if got.Text != chunk.Text {
		t.Errorf("text mismatch: %q", got.Text)
	}
	if got.Source != chunk.Source {
		t.Errorf("source mismatch: %q", got.Source)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "โรคและศัตรูพืช" {
		t.Errorf("categories mismatch: %v", got.Categories)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding mismatch: %v", got.Embedding)
	}
}

func TestGetChunkNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetChunk(context.Background(), "nope"); err == nil {
		t.Error("expected error for missing chunk")
	}
}

func TestBatchCreateAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{ID: "a", Text: "การเตรียมดิน", Source: "soil.pdf", Embedding: []float32{1, 0}},
		{ID: "b", Text: "การให้น้ำ", Source: "water.pdf", Embedding: []float32{0, 1}},
	}
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatalf("BatchCreateChunks failed: %v", err)
	}

	got, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75, 0}
	out := DecodeEmbedding(EncodeEmbedding(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d mismatch: %f vs %f", i, in[i], out[i])
		}
	}
	if EncodeEmbedding(nil) != nil {
		t.Error("nil embedding should encode to nil")
	}
}
