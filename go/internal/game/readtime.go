package game

import (
	"regexp"
	"strings"
	"time"
)

var (
	leadingParenthetical = regexp.MustCompile(`^\(.*\)`)
	underscoreRun        = regexp.MustCompile(`_+`)
	silentSuffix         = regexp.MustCompile(`(?:[^laeiouy]es|ed|[^laeiouy]e)$`)
	leadingY             = regexp.MustCompile(`^y`)
	vowelGroup           = regexp.MustCompile(`[aeiouy]{1,2}`)
)

// SpeakableClue returns the clue text as it should be read aloud: a leading
// parenthetical is dropped and underscore blanks are read as "blank".
func SpeakableClue(text string) string {
	text = leadingParenthetical.ReplaceAllString(text, "")
	return underscoreRun.ReplaceAllString(text, " blank ")
}

// SyllableCount estimates the syllables in a single word. Words without any
// vowel group are assumed to be numbers and count as three.
func SyllableCount(word string) int {
	word = strings.ToLower(word)
	if len([]rune(word)) <= 3 {
		return 1
	}
	word = silentSuffix.ReplaceAllString(word, "")
	word = leadingY.ReplaceAllString(word, "")
	if groups := vowelGroup.FindAllString(word, -1); len(groups) > 0 {
		return len(groups)
	}
	return 3
}

// ClueReadTime is how long the host needs to read text at syllablesPerSecond,
// never less than floor. Text is split on single spaces.
func ClueReadTime(text string, syllablesPerSecond float64, floor time.Duration) time.Duration {
	total := 0
	for _, w := range strings.Split(text, " ") {
		total += SyllableCount(w)
	}
	if syllablesPerSecond <= 0 {
		return floor
	}
	d := time.Duration(float64(total) / syllablesPerSecond * float64(time.Second))
	return max(d, floor)
}
