package episodes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/mcdev12/jeopardy/go/internal/game"
)

var infoPatterns = []struct {
	re   *regexp.Regexp
	info string
}{
	{regexp.MustCompile(`^\d{4} Teen Tournament`), "teen"},
	{regexp.MustCompile(`^\d{4} College Championship`), "college"},
	{regexp.MustCompile(`^\d{4} Kids Week`), "kids"},
	{regexp.MustCompile(`^\d{4} Celebrity`), "celebrity"},
	{regexp.MustCompile(`^\d{4} Teacher`), "teacher"},
	{regexp.MustCompile(`^\d{4} Tournament of Champions`), "champions"},
}

// ConvertJArchive turns a j-archive scrape into catalog episodes. The CSV
// header must include epNum, airDate, extra_info, round_name, coord,
// category, question, answer and daily_double; coord looks like "(x, y)".
func ConvertJArchive(r io.Reader) (map[string]game.Episode, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read j-archive header: %w", err)
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

	out := make(map[string]game.Episode)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rows, fmt.Errorf("failed to read j-archive row %d: %w", rows+1, err)
		}
		rows++

		num := field(rec, "epNum")
		if num == "" {
			continue
		}
		ep, ok := out[num]
		if !ok {
			ep = game.Episode{
				EpNum:   num,
				AirDate: field(rec, "airDate"),
				Info:    episodeInfo(field(rec, "extra_info")),
			}
		}

		x, y, ok := parseCoord(field(rec, "coord"))
		if !ok {
			out[num] = ep
			continue
		}
		first, _, _ := strings.Cut(strings.TrimSpace(field(rec, "round_name")), " ")
		round := game.Round(strings.ToLower(first))
		clue := game.Clue{
			X:           x,
			Y:           y,
			Question:    field(rec, "question"),
			Answer:      strings.ReplaceAll(field(rec, "answer"), `\`, ""),
			Category:    field(rec, "category"),
			DailyDouble: field(rec, "daily_double") == "True",
		}
		switch round {
		case game.RoundJeopardy:
			clue.Value = y * 200
			ep.Jeopardy = append(ep.Jeopardy, clue)
		case game.RoundDouble:
			clue.Value = y * 400
			ep.Double = append(ep.Double, clue)
		case game.RoundFinal:
			ep.Final = append(ep.Final, clue)
		}
		out[num] = ep
	}
	return out, rows, nil
}

func episodeInfo(extra string) string {
	for _, p := range infoPatterns {
		if p.re.MatchString(extra) {
			return p.info
		}
	}
	return ""
}

func parseCoord(coord string) (int, int, bool) {
	coord = strings.TrimSpace(coord)
	if len(coord) < 2 {
		return 0, 0, false
	}
	xs, ys, ok := strings.Cut(coord[1:len(coord)-1], ",")
	if !ok {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}
