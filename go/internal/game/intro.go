package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var introLines = []string{
	"This is Jeopardy!",
	"Here are today's contestants!",
}

var introLocations = []string{
	"somewhere exciting",
	"parts unknown",
	"a mysterious location",
	"an undisclosed location",
	"a place of wonder",
	"somewhere out there",
}

const hostIntro = "And now, here is the host of Jeopardy: the Artificial clone of Alex Trebek!"

var correctPhrases = []string{
	"That's correct!",
	"Well done!",
	"You got it!",
	"Exactly right!",
	"That's it!",
	"Perfect!",
	"Right you are!",
	"That's absolutely right!",
	"Correct!",
	"Yes, that's it!",
}

var incorrectPhrases = []string{
	"I'm sorry, that's incorrect.",
	"Oh no, that's not it.",
	"Not quite right.",
	"Sorry, wrong answer.",
	"That's not correct.",
	"No, that's not it.",
	"That's not the one we're looking for.",
	"Not what we had in mind.",
	"Unfortunately, that's wrong.",
	"No, I'm afraid that's incorrect.",
}

// playIntro runs the spoken intro for the game loaded as gen, then starts the
// first round. It runs without the session lock and gives up as soon as a
// newer game is loaded or the session closes.
func (s *Session) playIntro(gen uint64) {
	for _, line := range introLines {
		s.announce(EventPlayIntroPhrase, line)
		if !s.pause(gen, s.rules.IntroPhrasePause) {
			return
		}
	}

	for _, p := range s.deps.Roster.Members(s.roomID) {
		location := introLocations[s.deps.Intn(len(introLocations))]
		s.announce(EventPlayIntroPhrase, fmt.Sprintf("From %s, please welcome %s!", location, p.Name))
		s.emit(EventShowContestant, ContestantData{ParticipantID: p.ID})
		if !s.pause(gen, s.rules.ContestantPause) {
			return
		}
	}

	s.announce(EventPlayIntroPhrase, hostIntro)
	if !s.pause(gen, s.rules.HostPause) {
		return
	}
	s.emit(EventIntroComplete, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameGen != gen {
		return
	}
	s.nextRound()
}

// pause waits d and reports whether the intro for gen should keep going.
func (s *Session) pause(gen uint64, d time.Duration) bool {
	if d > 0 {
		select {
		case <-s.deps.Clock.After(d):
		case <-s.ctx.Done():
			return false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameGen != gen {
		log.Debug().Str("room_id", s.roomID).Msg("newer game loaded, abandoning intro")
		return false
	}
	return true
}

func (s *Session) announceCategories(gen uint64, round Round, cats []string) {
	text := fmt.Sprintf("Categories for %s round: %s", round, strings.Join(cats, ". "))
	audio := s.speak(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameGen != gen {
		log.Debug().Str("room_id", s.roomID).Str("round", string(round)).Msg("newer game loaded, dropping categories")
		return
	}
	s.emit(EventPlayCategories, SpeechData{Text: text, Audio: audio})
}

// announce emits a spoken cue. The text goes out even when synthesis fails.
func (s *Session) announce(t EventType, text string) {
	s.emit(t, SpeechData{Text: text, Audio: s.speak(text)})
}
