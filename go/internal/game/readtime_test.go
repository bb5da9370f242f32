package game

import (
	"testing"
	"time"
)

func TestSyllableCount(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"the", 1},
		{"cat", 1},
		{"city", 2},
		{"light", 1},
		{"capital", 3},
		{"rhythm", 1},
		{"1984", 3},
		{"yellow", 2},
		{"named", 1},
	}
	for _, tt := range tests {
		if got := SyllableCount(tt.word); got != tt.want {
			t.Errorf("SyllableCount(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestSpeakableClue(t *testing.T) {
	got := SpeakableClue("(Alex: Hi) Fill in the ___ here")
	want := " Fill in the  blank  here"
	if got != want {
		t.Errorf("SpeakableClue = %q, want %q", got, want)
	}
}

func TestClueReadTime(t *testing.T) {
	// 8 words of one syllable each at 4 per second.
	if got := ClueReadTime("the cat sat on the mat and ran", 4, time.Second); got != 2*time.Second {
		t.Errorf("read time %v, want 2s", got)
	}
	if got := ClueReadTime("hi", 4, time.Second); got != time.Second {
		t.Errorf("read time %v, want the 1s floor", got)
	}
}
