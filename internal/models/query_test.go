package models

import (
	"strings"
	"testing"
)

func TestValidateEmptyQuery(t *testing.T) {
	q := &RetrievalQuery{}
	if err := q.Validate(2000, 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestValidateDefaults(t *testing.T) {
	q := &RetrievalQuery{Query: "โรคใบขาว"}
	if err := q.Validate(2000, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TopN != 5 {
		t.Errorf("expected TopN default 5, got %d", q.TopN)
	}
}

func TestValidateTopNCap(t *testing.T) {
	q := &RetrievalQuery{Query: "x", TopN: 100}
	if err := q.Validate(2000, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TopN != 20 {
		t.Errorf("expected TopN capped at 20, got %d", q.TopN)
	}
}

func TestValidateMaxChars(t *testing.T) {
	q := &RetrievalQuery{Query: strings.Repeat("อ", 2001)}
	if err := q.Validate(2000, 5); err == nil {
		t.Error("expected error for over-length query")
	}
	// Rune counting: 2000 Thai characters are 6000 bytes but still valid.
	q = &RetrievalQuery{Query: strings.Repeat("อ", 2000)}
	if err := q.Validate(2000, 5); err != nil {
		t.Errorf("2000-rune query should be valid: %v", err)
	}
}
