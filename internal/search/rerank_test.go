package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/rerank"
)

func candidateWithText(id, text string) *models.Candidate {
	return &models.Candidate{Chunk: &models.Chunk{ID: id, Text: text}}
}

func TestRerankEmptySkipsModel(t *testing.T) {
	mock := &rerank.MockCrossEncoder{}
	got, err := RerankCandidates(context.Background(), mock, "อ้อย", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
	if mock.Calls != 0 {
		t.Errorf("model must not be called on an empty batch, got %d calls", mock.Calls)
	}
}

func TestRerankOrdersAndTruncates(t *testing.T) {
	mock := &rerank.MockCrossEncoder{
		ScoreFn: func(query string, texts []string) []float64 {
			// Reverse of input order.
			scores := make([]float64, len(texts))
			for i := range texts {
				scores[i] = float64(i)
			}
			return scores
		},
	}
	candidates := []*models.Candidate{
		candidateWithText("a", "one"),
		candidateWithText("b", "two"),
		candidateWithText("c", "three"),
	}
	got, err := RerankCandidates(context.Background(), mock, "q", candidates, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	if got[0].Chunk.ID != "c" || got[1].Chunk.ID != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].Chunk.ID, got[1].Chunk.ID)
	}
	if got[0].Rank != 1 || got[1].Rank != 2 {
		t.Errorf("ranks must be 1-based and sequential: %d, %d", got[0].Rank, got[1].Rank)
	}
}

func TestRerankWrapsFailure(t *testing.T) {
	fail := &failingEncoder{}
	_, err := RerankCandidates(context.Background(), fail, "q",
		[]*models.Candidate{candidateWithText("a", "text")}, 5)
	var rerankErr *models.RerankError
	if !errors.As(err, &rerankErr) {
		t.Fatalf("expected *models.RerankError, got %v", err)
	}
}

func TestRerankShortScoreSlice(t *testing.T) {
	mock := &rerank.MockCrossEncoder{
		ScoreFn: func(query string, texts []string) []float64 {
			return []float64{1.0}
		},
	}
	candidates := []*models.Candidate{
		candidateWithText("a", "one"),
		candidateWithText("b", "two"),
	}
	_, err := RerankCandidates(context.Background(), mock, "q", candidates, 5)
	var rerankErr *models.RerankError
	if !errors.As(err, &rerankErr) {
		t.Fatalf("a score count mismatch must surface as *models.RerankError, got %v", err)
	}
}

type failingEncoder struct{}

func (f *failingEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return nil, errors.New("inference failed")
}

func (f *failingEncoder) Close() error { return nil }
