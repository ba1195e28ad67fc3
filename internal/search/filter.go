package search

import "github.com/kasetai/khonha/internal/models"

// FilterByCategory keeps only candidates whose chunk carries the given
// category label. An empty category keeps everything. Relative order is
// preserved; filtering the result again with the same category is a no-op.
func FilterByCategory(candidates []*models.Candidate, category string) []*models.Candidate {
	if category == "" {
		return candidates
	}
	filtered := make([]*models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Chunk.HasCategory(category) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
