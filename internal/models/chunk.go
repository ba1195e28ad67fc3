// Package models defines core data structures for chunks, queries, and candidates.
package models

import "time"

// Chunk is an immutable unit of retrievable text from the prebuilt document
// index. Chunks are created offline; nothing at query time mutates them.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	Text       string    `json:"text" db:"text"`
	Source     string    `json:"source" db:"source"`
	Categories []string  `json:"categories" db:"categories"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HasCategory reports whether the chunk carries the given category label.
// Matching is exact; the category vocabulary is defined by whatever built the index.
func (c *Chunk) HasCategory(category string) bool {
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}
