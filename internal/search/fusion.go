package search

import (
	"sort"

	"github.com/kasetai/khonha/internal/lexical"
	"github.com/kasetai/khonha/internal/vector"
)

// FusedCandidate is a chunk ID with its combined dense+sparse score. The
// component scores are kept for logging.
type FusedCandidate struct {
	ID          string
	Score       float64
	DenseScore  float64
	SparseScore float64
}

// Fuse merges dense and sparse result lists into one ranked list. Each list
// is max-normalized so the two score scales (inner product vs BM25) become
// comparable, then combined as denseWeight*dense + sparseWeight*sparse. A
// chunk appearing in both lists gets both contributions; a chunk in one
// list scores zero for the other. Ties keep the higher-weighted list's
// ordering.
func Fuse(dense []*vector.Result, sparse []*lexical.Result, denseWeight, sparseWeight float64) []*FusedCandidate {
	denseNorm := maxScore(denseScores(dense))
	sparseNorm := maxScore(sparseScores(sparse))

	// Insertion order doubles as the tie-break order under SliceStable, so
	// the higher-weighted list is seeded first.
	order := make([]string, 0, len(dense)+len(sparse))
	byID := make(map[string]*FusedCandidate, len(dense)+len(sparse))

	addDense := func() {
		for _, r := range dense {
			c, ok := byID[r.ID]
			if !ok {
				c = &FusedCandidate{ID: r.ID}
				byID[r.ID] = c
				order = append(order, r.ID)
			}
			c.DenseScore = r.Score / denseNorm
		}
	}
	addSparse := func() {
		for _, r := range sparse {
			c, ok := byID[r.ID]
			if !ok {
				c = &FusedCandidate{ID: r.ID}
				byID[r.ID] = c
				order = append(order, r.ID)
			}
			c.SparseScore = r.Score / sparseNorm
		}
	}
	if sparseWeight > denseWeight {
		addSparse()
		addDense()
	} else {
		addDense()
		addSparse()
	}

	fused := make([]*FusedCandidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Score = denseWeight*c.DenseScore + sparseWeight*c.SparseScore
		fused = append(fused, c)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

func denseScores(rs []*vector.Result) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Score
	}
	return out
}

func sparseScores(rs []*lexical.Result) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Score
	}
	return out
}

// maxScore returns the normalization divisor for a score list. Non-positive
// maxima (empty list, all-zero scores) normalize by 1 so the originals pass
// through unchanged instead of dividing by zero.
func maxScore(scores []float64) float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return 1
	}
	return max
}
