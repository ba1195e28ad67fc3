package models

import "fmt"

// EmbeddingError means the query text could not be embedded (encoding
// failure, size limit). Fatal for the call; never retried here.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexUnavailableError means a cached artifact (chunk store, vector index,
// lexical index, embedder, cross-encoder) is missing, corrupt, or failed to
// load. The cache manager never substitutes an empty artifact, since that
// would silently turn every query into "no relevant documents found".
type IndexUnavailableError struct {
	Artifact string
	Err      error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("artifact %q unavailable: %v", e.Artifact, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// RerankError means cross-encoder scoring failed on a non-empty candidate
// batch. Fatal for that call only.
type RerankError struct {
	Err error
}

func (e *RerankError) Error() string {
	return fmt.Sprintf("rerank failed: %v", e.Err)
}

func (e *RerankError) Unwrap() error { return e.Err }
