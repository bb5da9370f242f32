package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Envelope is the base structure for every outbound message
type Envelope struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Outbound types besides the game cues, which use game.EventType values.
const (
	TypeState    = "state"
	TypeChat     = "chat"
	TypeMyWager  = "myWager"
	TypeIdentity = "identity"
)

func newEnvelope(roomID, typ string, data any) *Envelope {
	env := &Envelope{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Error().Err(err).Str("type", typ).Msg("failed to marshal envelope data")
		} else {
			env.Data = raw
		}
	}
	return env
}

// ChatData accompanies TypeChat.
type ChatData struct {
	game.ChatMessage
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// MyWagerData tells a participant the wager the engine locked in for them.
type MyWagerData struct {
	Amount int `json:"amount"`
}

// IdentityData tells a new connection who it is.
type IdentityData struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

// Intent is one inbound client message.
type Intent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound intent types.
const (
	IntentInit      = "init"
	IntentStart     = "start"
	IntentScoring   = "scoring"
	IntentPick      = "pickQ"
	IntentBuzz      = "buzz"
	IntentAnswer    = "answer"
	IntentWager     = "wager"
	IntentJudge     = "judge"
	IntentBulkJudge = "bulkJudge"
	IntentSkip      = "skipQ"
	IntentUndo      = "undo"
	IntentIntro     = "cmdIntro"
	IntentReconnect = "reconnect"
	IntentRename    = "rename"
)

type startData struct {
	Episode string `json:"episode"`
	Filter  string `json:"filter"`
	Custom  string `json:"custom"`
}

type scoringData struct {
	Mode game.ScoringMode `json:"mode"`
}

type pickData struct {
	ID string `json:"id"`
}

type answerData struct {
	QuestionID string `json:"currentQ"`
	Answer     string `json:"answer"`
}

type wagerData struct {
	Amount wagerAmount `json:"amount"`
}

type reconnectData struct {
	OldID string `json:"oldId"`
}

type renameData struct {
	Name string `json:"name"`
}

// wagerAmount accepts a JSON number or string and keeps its text. Clamping
// and parsing happen in the engine.
type wagerAmount string

func (w *wagerAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*w = wagerAmount(s)
	return nil
}
