package judge

import (
	"context"
	"strings"
	"unicode"
)

var articles = map[string]bool{"a": true, "an": true, "the": true}

// Normalized accepts an answer that matches the reference once case,
// punctuation, whitespace and leading articles are ignored. It is the judge
// used when no model is configured.
type Normalized struct{}

// JudgeAnswer never fails.
func (Normalized) JudgeAnswer(_ context.Context, candidate, reference string) (bool, error) {
	c := Normalize(candidate)
	return c != "" && c == Normalize(reference), nil
}

// Normalize lowercases s, drops punctuation, collapses whitespace and strips
// a leading article.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-':
			return ' '
		}
		return -1
	}, s)

	words := strings.Fields(s)
	if len(words) > 1 && articles[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
