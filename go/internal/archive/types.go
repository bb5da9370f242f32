package archive

import (
	"context"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game/events"
)

// GameRecord is one finished game.
type GameRecord struct {
	ID         string            `json:"id"`
	RoomID     string            `json:"room_id"`
	EpNum      string            `json:"ep_num"`
	AirDate    string            `json:"air_date"`
	Scoring    string            `json:"scoring"`
	NumCorrect int               `json:"num_correct"`
	NumTotal   int               `json:"num_total"`
	Standings  []events.Standing `json:"standings"`
	EndedAt    time.Time         `json:"ended_at"`
}

// ScoreEntry is one participant's final score in an archived game.
type ScoreEntry struct {
	GameID        string    `json:"game_id"`
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	Rank          int       `json:"rank"`
	EndedAt       time.Time `json:"ended_at"`
}

// Repository stores finished games. SaveGame is idempotent on GameRecord.ID.
type Repository interface {
	Migrate(ctx context.Context) error
	SaveGame(ctx context.Context, rec GameRecord) error
	RecentGames(ctx context.Context, limit int) ([]GameRecord, error)
	TopScores(ctx context.Context, limit int) ([]ScoreEntry, error)
}

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
