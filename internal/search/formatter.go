package search

import (
	"fmt"
	"strings"

	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/pkg/utils"
)

// NoResultsMessage is returned verbatim when retrieval yields nothing.
// Downstream consumers match on this exact string, so it must never vary.
const NoResultsMessage = "No relevant documents found."

// Format renders ranked candidates as a single context string for prompt
// assembly: one numbered block per candidate with a truncated excerpt and
// its source, blocks separated by a blank line.
func Format(candidates []*models.Candidate, excerptChars int) string {
	if len(candidates) == 0 {
		return NoResultsMessage
	}
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		excerpt := utils.Truncate(c.Chunk.Text, excerptChars)
		blocks[i] = fmt.Sprintf("[%d] %s (source: %s)", i+1, excerpt, c.Chunk.Source)
	}
	return strings.Join(blocks, "\n\n")
}
