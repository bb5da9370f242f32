package episodes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game"
)

// CustomEpisodeNumber is the episode number given to every custom game.
const CustomEpisodeNumber = "Custom"

// ParseCustom reads a CSV game with the header round,cat,q,a,dd. Rows are
// placed on the board in order: a new round starts at (1,1), a new category
// moves one column right, anything else moves one row down. Rows without a
// question or answer are dropped but still take up their cell.
func ParseCustom(data, airDate string) (*game.Episode, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read custom header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	ep := &game.Episode{EpNum: CustomEpisodeNumber, AirDate: airDate}
	var (
		round, cat string
		x, y       int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read custom row: %w", err)
		}

		rowRound, rowCat := field(rec, "round"), field(rec, "cat")
		switch {
		case rowRound != round:
			x, y = 1, 1
		case rowCat != cat:
			x, y = x+1, 1
		default:
			y++
		}
		round, cat = rowRound, rowCat

		q, a := field(rec, "q"), field(rec, "a")
		if q == "" || a == "" {
			continue
		}
		clue := game.Clue{
			X:           x,
			Y:           y,
			Question:    q,
			Answer:      a,
			Category:    rowCat,
			DailyDouble: strings.EqualFold(field(rec, "dd"), "true"),
			Value:       y * 200 * multiplier(game.Round(rowRound)),
		}
		switch game.Round(rowRound) {
		case game.RoundJeopardy:
			ep.Jeopardy = append(ep.Jeopardy, clue)
		case game.RoundDouble:
			ep.Double = append(ep.Double, clue)
		case game.RoundFinal:
			ep.Final = append(ep.Final, clue)
		}
	}
	return ep, nil
}

func multiplier(r game.Round) int {
	switch r {
	case game.RoundDouble:
		return 2
	case game.RoundFinal:
		return 0
	}
	return 1
}

func today() string {
	return time.Now().UTC().Format(time.DateOnly)
}
