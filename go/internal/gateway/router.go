package gateway

import (
	"context"
	"encoding/json"

	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Router turns client intents into session operations.
type Router struct {
	registry *game.Registry
	cm       *ConnectionManager
}

func NewRouter(registry *game.Registry, cm *ConnectionManager) *Router {
	return &Router{registry: registry, cm: cm}
}

// HandleMessage decodes one intent and applies it to the connection's room.
// Malformed or out-of-turn intents are dropped.
func (r *Router) HandleMessage(ctx context.Context, c *Connection, data []byte) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("dropping malformed intent")
		return
	}

	s, err := r.registry.Session(ctx, c.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", c.RoomID).Msg("failed to open session")
		return
	}

	pid := c.ParticipantID
	switch in.Type {
	case IntentInit:
		r.cm.SendToParticipant(c.RoomID, pid, newEnvelope(c.RoomID, TypeIdentity, IdentityData{
			ParticipantID: pid,
			Name:          r.cm.DisplayName(c.RoomID, pid),
		}))
		s.Join(pid)
	case IntentStart:
		var d startData
		if decode(in, &d) {
			s.Start(d.Episode, d.Filter, d.Custom)
		}
	case IntentScoring:
		var d scoringData
		if decode(in, &d) {
			s.SetScoring(d.Mode)
		}
	case IntentPick:
		var d pickData
		if decode(in, &d) {
			s.PickQuestion(pid, d.ID)
		}
	case IntentBuzz:
		s.Buzz(pid)
	case IntentAnswer:
		var d answerData
		if decode(in, &d) {
			s.SubmitAnswer(pid, d.QuestionID, d.Answer)
		}
	case IntentWager:
		var d wagerData
		if decode(in, &d) && s.SubmitWager(pid, string(d.Amount)) {
			if amount, ok := s.PrivateWager(pid); ok {
				r.cm.SendToParticipant(c.RoomID, pid, newEnvelope(c.RoomID, TypeMyWager, MyWagerData{Amount: amount}))
			}
		}
	case IntentJudge:
		var v game.Verdict
		if decode(in, &v) {
			s.Judge(pid, v)
		}
	case IntentBulkJudge:
		var vs []game.Verdict
		if decode(in, &vs) {
			s.BulkJudge(pid, vs)
		}
	case IntentSkip:
		s.SkipVote(pid)
	case IntentUndo:
		s.Undo()
	case IntentIntro:
		s.CommandIntro()
	case IntentReconnect:
		var d reconnectData
		if decode(in, &d) {
			s.Reconnect(pid, d.OldID)
		}
	case IntentRename:
		var d renameData
		if decode(in, &d) && d.Name != "" {
			r.cm.Rename(c.RoomID, pid, d.Name)
			s.Join(pid)
		}
	default:
		log.Debug().Str("type", in.Type).Str("connection_id", c.ID).Msg("unknown intent")
	}
}

// HandleLeave releases anything the session is waiting on from the
// participant.
func (r *Router) HandleLeave(_ context.Context, roomID, participantID string) {
	if s, ok := r.registry.Lookup(roomID); ok {
		s.Disconnect(participantID)
	}
}

func decode(in Intent, v any) bool {
	if len(in.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		log.Debug().Err(err).Str("type", in.Type).Msg("dropping intent with bad payload")
		return false
	}
	return true
}
