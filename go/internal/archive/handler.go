package archive

import (
	"context"
	"fmt"

	"github.com/mcdev12/jeopardy/go/internal/eventbus"
	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/mcdev12/jeopardy/go/internal/archive")

// Handler stores GameEnded events. Other event types are acknowledged and
// skipped.
func Handler(repo Repository) eventbus.HandlerFunc {
	return func(ctx context.Context, env eventbus.Envelope) error {
		if env.EventType != events.EventTypeGameEnded {
			return nil
		}

		var p events.GameEndedPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		roomID := p.RoomID
		if roomID == "" {
			roomID = env.RoomID
		}
		endedAt := p.EndedAt
		if endedAt.IsZero() {
			endedAt = env.Timestamp
		}

		rec := GameRecord{
			ID:         env.EventID,
			RoomID:     roomID,
			EpNum:      p.EpNum,
			AirDate:    p.AirDate,
			Scoring:    p.Scoring,
			NumCorrect: p.NumCorrect,
			NumTotal:   p.NumTotal,
			Standings:  p.Standings,
			EndedAt:    endedAt,
		}
		ctx, span := tracer.Start(ctx, "archive.save_game")
		span.SetAttributes(
			attribute.String("room_id", roomID),
			attribute.String("ep_num", p.EpNum),
		)
		defer span.End()
		if err := repo.SaveGame(ctx, rec); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
			return fmt.Errorf("archive game: %w", err)
		}

		log.Info().
			Str("room_id", roomID).
			Str("ep_num", p.EpNum).
			Int("players", len(p.Standings)).
			Msg("archived finished game")
		return nil
	}
}
