package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/rerank"
)

// RerankCandidates rescores candidates with the cross-encoder and returns
// the top topN in descending score order, ranks assigned 1..n. An empty
// candidate list returns empty without calling the model. The fused scores
// are discarded: the cross-encoder owns the final ordering.
func RerankCandidates(ctx context.Context, encoder rerank.CrossEncoder, query string, candidates []*models.Candidate, topN int) ([]*models.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}
	scores, err := encoder.Score(ctx, query, texts)
	if err != nil {
		return nil, &models.RerankError{Err: err}
	}
	if len(scores) != len(candidates) {
		return nil, &models.RerankError{
			Err: fmt.Errorf("encoder returned %d scores for %d candidates", len(scores), len(candidates)),
		}
	}

	reranked := make([]*models.Candidate, len(candidates))
	for i, c := range candidates {
		reranked[i] = &models.Candidate{Chunk: c.Chunk, Score: scores[i]}
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if topN > 0 && len(reranked) > topN {
		reranked = reranked[:topN]
	}
	for i, c := range reranked {
		c.Rank = i + 1
	}
	return reranked, nil
}
