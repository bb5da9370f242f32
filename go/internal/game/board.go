package game

import (
	"fmt"
)

// FinalQuestionID is the only cell on the final board.
const FinalQuestionID = "1_1"

// PublicCell is the viewer copy of a board cell. Question stays empty until the clue is revealed.
type PublicCell struct {
	Value    int    `json:"value"`
	Category string `json:"category"`
	Question string `json:"question,omitempty"`
}

// CellKey returns the board key for a column/row coordinate.
func CellKey(x, y int) string {
	return fmt.Sprintf("%d_%d", x, y)
}

// buildBoard returns the private board for a list of clues.
func buildBoard(clues []Clue) map[string]Clue {
	board := make(map[string]Clue, len(clues))
	for _, c := range clues {
		board[CellKey(c.X, c.Y)] = c
	}
	return board
}

// buildPublicBoard returns the published board: value and category only.
func buildPublicBoard(clues []Clue) map[string]PublicCell {
	board := make(map[string]PublicCell, len(clues))
	for _, c := range clues {
		board[CellKey(c.X, c.Y)] = PublicCell{Value: c.Value, Category: c.Category}
	}
	return board
}

// categories returns the distinct categories of clues in first-seen order.
func categories(clues []Clue) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range clues {
		if seen[c.Category] {
			continue
		}
		seen[c.Category] = true
		out = append(out, c.Category)
	}
	return out
}
