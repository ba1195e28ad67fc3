package models

import (
	"fmt"
	"unicode/utf8"
)

// RetrievalQuery represents one retrieval request.
type RetrievalQuery struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"` // empty means no filtering
	TopN     int    `json:"top_n,omitempty"`    // final result count after reranking
}

// Validate checks the query and fills defaults. maxChars bounds the query
// length in runes (embedder and cross-encoder both have token limits);
// defaultTopN is used when TopN is unset.
func (q *RetrievalQuery) Validate(maxChars, defaultTopN int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if maxChars > 0 && utf8.RuneCountInString(q.Query) > maxChars {
		return fmt.Errorf("query exceeds %d characters", maxChars)
	}
	if q.TopN <= 0 {
		q.TopN = defaultTopN
	}
	if q.TopN > 20 {
		q.TopN = 20
	}
	return nil
}
