package models

// Candidate is a transient per-query structure: one chunk plus the score and
// rank assigned by whichever pipeline stage produced it (lexical, dense,
// fused, or cross-encoder). Candidates are never persisted.
type Candidate struct {
	Chunk *Chunk
	Score float64
	Rank  int
}
