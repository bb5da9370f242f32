package events

import (
	"time"
)

// Domain event payloads shared between the game engine, the event bus and the archiver.

const (
	EventTypeGameStarted      = "GameStarted"
	EventTypeRoundStarted     = "RoundStarted"
	EventTypeQuestionResolved = "QuestionResolved"
	EventTypeGameEnded        = "GameEnded"
)

// Standing is one line of the final ranking.
type Standing struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
}

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	RoomID    string    `json:"room_id"`
	EpNum     string    `json:"ep_num"`
	AirDate   string    `json:"air_date"`
	Info      string    `json:"info,omitempty"`
	Custom    bool      `json:"custom"`
	StartedAt time.Time `json:"started_at"`
}

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	RoomID     string    `json:"room_id"`
	Round      string    `json:"round"`
	Categories []string  `json:"categories"`
	Picker     string    `json:"picker,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// QuestionResolvedPayload is the payload for a QuestionResolved event
type QuestionResolvedPayload struct {
	RoomID      string           `json:"room_id"`
	Round       string           `json:"round"`
	QuestionID  string           `json:"question_id"`
	Answer      string           `json:"answer"`
	Value       int              `json:"value"`
	DailyDouble bool             `json:"daily_double"`
	Verdicts    map[string]*bool `json:"verdicts"`
	Scores      map[string]int   `json:"scores"`
	ResolvedAt  time.Time        `json:"resolved_at"`
}

// GameEndedPayload is the payload for a GameEnded event
type GameEndedPayload struct {
	RoomID     string     `json:"room_id"`
	EpNum      string     `json:"ep_num"`
	AirDate    string     `json:"air_date"`
	Scoring    string     `json:"scoring"`
	NumCorrect int        `json:"num_correct"`
	NumTotal   int        `json:"num_total"`
	Standings  []Standing `json:"standings"`
	EndedAt    time.Time  `json:"ended_at"`
}
