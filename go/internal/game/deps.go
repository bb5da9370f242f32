package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/jeopardy/go/internal/game/events"
)

// ErrNotFound is returned by stores and sources when nothing is stored under a key.
var ErrNotFound = errors.New("not found")

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
	After(d time.Duration) <-chan time.Time
}

// Judge decides whether a candidate answer matches the reference answer.
type Judge interface {
	JudgeAnswer(ctx context.Context, candidate, reference string) (bool, error)
}

// Speaker turns text into audio.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Roster reports who is present in a room.
type Roster interface {
	Members(roomID string) []Participant
	DisplayName(roomID, participantID string) string
}

// Broadcaster delivers state and cues to a room's viewers. Implementations
// must not block and must be safe for concurrent use.
type Broadcaster interface {
	PublishState(roomID string, state PublicState)
	PublishEvent(roomID string, event Event)
}

// ChatLog receives game-log entries for a room.
type ChatLog interface {
	AddChatMessage(roomID string, msg ChatMessage)
}

// ResultsSink records finished games and usage counters.
type ResultsSink interface {
	RecordResults(ctx context.Context, standings []events.Standing) error
	IncrementCounter(ctx context.Context, name string) error
	RecordJudgement(ctx context.Context, reference, submitted string) error
}

// EpisodeSource loads game data.
type EpisodeSource interface {
	Episode(ref, filter string) (*Episode, error)
	Custom(data string) (*Episode, error)
}

// DomainEvents publishes lifecycle events for other services.
type DomainEvents interface {
	PublishDomainEvent(ctx context.Context, roomID, eventType string, payload any) error
}

// Store persists whole sessions.
type Store interface {
	Save(ctx context.Context, roomID string, state SavedState) error
	Load(ctx context.Context, roomID string) (*SavedState, error)
	Delete(ctx context.Context, roomID string) error
}

// Dependencies are the collaborators shared by every session. Nil fields fall
// back to no-op implementations.
type Dependencies struct {
	Clock    Clock
	Judge    Judge
	Speaker  Speaker
	Roster   Roster
	Out      Broadcaster
	Chat     ChatLog
	Results  ResultsSink
	Episodes EpisodeSource
	Events   DomainEvents
	// Intn picks a random index in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Speaker == nil {
		d.Speaker = noopSpeaker{}
	}
	if d.Roster == nil {
		d.Roster = noopRoster{}
	}
	if d.Out == nil {
		d.Out = noopBroadcaster{}
	}
	if d.Chat == nil {
		d.Chat = noopChat{}
	}
	if d.Results == nil {
		d.Results = noopResults{}
	}
	if d.Episodes == nil {
		d.Episodes = noopEpisodes{}
	}
	if d.Events == nil {
		d.Events = noopEvents{}
	}
	if d.Intn == nil {
		d.Intn = rand.IntN
	}
	return d
}

var errNoSpeech = errors.New("speech unavailable")

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, string) ([]byte, error) { return nil, errNoSpeech }

type noopRoster struct{}

func (noopRoster) Members(string) []Participant { return nil }
func (noopRoster) DisplayName(_, participantID string) string { return participantID }

type noopBroadcaster struct{}

func (noopBroadcaster) PublishState(string, PublicState) {}
func (noopBroadcaster) PublishEvent(string, Event) {}

type noopChat struct{}

func (noopChat) AddChatMessage(string, ChatMessage) {}

type noopResults struct{}

func (noopResults) RecordResults(context.Context, []events.Standing) error { return nil }
func (noopResults) IncrementCounter(context.Context, string) error { return nil }
func (noopResults) RecordJudgement(context.Context, string, string) error { return nil }

type noopEpisodes struct{}

func (noopEpisodes) Episode(string, string) (*Episode, error) { return nil, ErrNotFound }
func (noopEpisodes) Custom(string) (*Episode, error) { return nil, ErrNotFound }

type noopEvents struct{}

func (noopEvents) PublishDomainEvent(context.Context, string, string, any) error { return nil }
