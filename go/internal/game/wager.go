package game

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	minWager           = 5
	minFinalWager      = 0
	jeopardyWagerFloor = 1000
	doubleWagerFloor   = 2000
)

// WagerBounds returns the inclusive wager range for a participant holding score in round.
func WagerBounds(round Round, score int) (lo, hi int) {
	switch round {
	case RoundJeopardy:
		return minWager, max(score, jeopardyWagerFloor)
	case RoundDouble:
		return minWager, max(score, doubleWagerFloor)
	case RoundFinal:
		return minFinalWager, max(score, 0)
	}
	return minWager, minWager
}

// ClampWager parses raw and clamps it into [lo, hi]. Non-numeric input yields lo;
// blank input reads as zero.
func ClampWager(raw string, lo, hi int) int {
	raw = strings.TrimSpace(raw)
	v := 0.0
	if raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(parsed) {
			return lo
		}
		v = parsed
	}
	v = math.Min(math.Max(v, float64(lo)), float64(hi))
	return int(math.Trunc(v))
}
