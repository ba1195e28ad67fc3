package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherFiresOnDatabaseReplace(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w := NewWatcher(dbPath, func() { fired.Add(1) }, zap.NewNop(),
		WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Replace via rename, the way an offline rebuild swaps the file in.
	tmp := filepath.Join(dir, "chunks.db.tmp")
	if err := os.WriteFile(tmp, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not fire after database replace")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w := NewWatcher(dbPath, func() { fired.Add(1) }, zap.NewNop(),
		WithDebounce(100*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(dbPath, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected a burst of writes to fire once, got %d", got)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w := NewWatcher(dbPath, func() { fired.Add(1) }, zap.NewNop(),
		WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("sibling file writes must not fire, got %d", got)
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(dbPath, func() {}, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
