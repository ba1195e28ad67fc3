package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kasetai/khonha/internal/models"
)

// SQLiteStore implements ChunkStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens or creates a SQLite database at dbPath and initializes the
// schema. Parent directories are created if they do not exist. Used by the
// offline index build tools and test fixtures.
func New(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Open opens an existing chunk database for querying. Unlike New it runs no
// DDL (the index may live on read-only media) and it fails when the file or
// the chunks table is missing: the query path must never fabricate an empty
// index, since that would make every query report "no relevant documents
// found".
func Open(dbPath string) (*SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("chunk database missing: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'chunks'`).Scan(&name)
	if err == sql.ErrNoRows {
		_ = db.Close()
		return nil, fmt.Errorf("not a chunk database: %s has no chunks table", dbPath)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		categories TEXT,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateChunk inserts a chunk.
func (s *SQLiteStore) CreateChunk(ctx context.Context, chunk *models.Chunk) error {
	categoriesJSON, err := json.Marshal(chunk.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunks (id, text, source, categories, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.Text, chunk.Source, string(categoriesJSON),
		EncodeEmbedding(chunk.Embedding), chunk.CreatedAt,
	)
	return err
}

// BatchCreateChunks inserts chunks in a single transaction.
func (s *SQLiteStore) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, text, source, categories, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		categoriesJSON, err := json.Marshal(chunk.Categories)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to marshal categories: %w", err)
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.Text, chunk.Source, string(categoriesJSON),
			EncodeEmbedding(chunk.Embedding), chunk.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, source, categories, embedding, created_at
		 FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, err
}

// ListChunks returns all chunks. The index is small enough (thousands of
// chunks) that the derived-index builders load it in one pass.
func (s *SQLiteStore) ListChunks(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, source, categories, embedding, created_at
		 FROM chunks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var chunk models.Chunk
	var categoriesJSON sql.NullString
	var embeddingBlob []byte
	if err := row.Scan(&chunk.ID, &chunk.Text, &chunk.Source,
		&categoriesJSON, &embeddingBlob, &chunk.CreatedAt); err != nil {
		return nil, err
	}
	if categoriesJSON.Valid && categoriesJSON.String != "" {
		if err := json.Unmarshal([]byte(categoriesJSON.String), &chunk.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
	}
	chunk.Embedding = DecodeEmbedding(embeddingBlob)
	return &chunk, nil
}
