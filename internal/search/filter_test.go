package search

import (
	"testing"

	"github.com/kasetai/khonha/internal/models"
)

func chunkWithCategories(id string, cats ...string) *models.Candidate {
	return &models.Candidate{Chunk: &models.Chunk{ID: id, Categories: cats}}
}

func TestFilterByCategoryEmptyIsNoOp(t *testing.T) {
	candidates := []*models.Candidate{
		chunkWithCategories("a", "โรคพืช"),
		chunkWithCategories("b"),
	}
	got := FilterByCategory(candidates, "")
	if len(got) != 2 {
		t.Errorf("empty category must keep all candidates, got %d", len(got))
	}
}

func TestFilterByCategoryExactMatch(t *testing.T) {
	candidates := []*models.Candidate{
		chunkWithCategories("a", "โรคพืช", "การป้องกัน"),
		chunkWithCategories("b", "ปุ๋ย"),
		chunkWithCategories("c", "โรคพืช"),
	}
	got := FilterByCategory(candidates, "โรคพืช")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Chunk.ID != "a" || got[1].Chunk.ID != "c" {
		t.Errorf("filter must preserve order, got %s then %s", got[0].Chunk.ID, got[1].Chunk.ID)
	}
}

func TestFilterByCategoryIdempotent(t *testing.T) {
	candidates := []*models.Candidate{
		chunkWithCategories("a", "ศัตรูพืช"),
		chunkWithCategories("b", "ปุ๋ย"),
	}
	once := FilterByCategory(candidates, "ศัตรูพืช")
	twice := FilterByCategory(once, "ศัตรูพืช")
	if len(once) != len(twice) {
		t.Errorf("filtering twice changed the result: %d vs %d", len(once), len(twice))
	}
}

func TestFilterByCategoryNoMatches(t *testing.T) {
	candidates := []*models.Candidate{chunkWithCategories("a", "ปุ๋ย")}
	got := FilterByCategory(candidates, "โรคพืช")
	if len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}
