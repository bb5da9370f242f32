package game

import (
	"slices"
	"testing"
)

func TestBuildPublicBoard_HidesPromptAndAnswer(t *testing.T) {
	ep := fixtureEpisode()
	private := buildBoard(ep.Jeopardy)
	public := buildPublicBoard(ep.Jeopardy)

	if len(private) != len(public) {
		t.Fatalf("private has %d cells, public %d", len(private), len(public))
	}
	cell, ok := public[CellKey(1, 2)]
	if !ok {
		t.Fatal("cell 1_2 missing from the public board")
	}
	if cell.Question != "" || cell.Value != 400 || cell.Category != "CAPITALS" {
		t.Errorf("public cell %+v", cell)
	}
	if !private["1_2"].DailyDouble || private["1_2"].Answer != "Rome" {
		t.Errorf("private cell %+v", private["1_2"])
	}
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	clues := []Clue{{Category: "B"}, {Category: "A"}, {Category: "B"}, {Category: "C"}}
	if got := categories(clues); !slices.Equal(got, []string{"B", "A", "C"}) {
		t.Errorf("categories = %v", got)
	}
}
