package rerank

import (
	"context"
	"strings"
)

// MockCrossEncoder is a deterministic cross-encoder for tests. Its default
// scoring counts shared rune trigrams between query and text, so texts that
// lexically resemble the query score higher, close enough to a real
// cross-encoder for ordering assertions. Calls counts Score invocations so
// tests can assert the model is never touched on empty batches.
type MockCrossEncoder struct {
	Calls   int
	ScoreFn func(query string, texts []string) []float64
}

// Score returns one score per text.
func (m *MockCrossEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	m.Calls++
	if m.ScoreFn != nil {
		return m.ScoreFn(query, texts), nil
	}
	scores := make([]float64, len(texts))
	queryGrams := runeTrigrams(query)
	for i, text := range texts {
		scores[i] = overlap(queryGrams, runeTrigrams(text))
	}
	return scores, nil
}

// Close is a no-op for MockCrossEncoder.
func (m *MockCrossEncoder) Close() error { return nil }

func runeTrigrams(s string) map[string]struct{} {
	runes := []rune(strings.ToLower(s))
	grams := make(map[string]struct{})
	for i := 0; i+3 <= len(runes); i++ {
		grams[string(runes[i:i+3])] = struct{}{}
	}
	return grams
}

func overlap(a, b map[string]struct{}) float64 {
	var n float64
	for g := range a {
		if _, ok := b[g]; ok {
			n++
		}
	}
	return n
}
