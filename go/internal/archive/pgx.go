package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxRepository archives games in Postgres through a pgx pool.
type PgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{pool: pool}
}

func (r *PgxRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[DialectPostgres] {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate archive: %w", err)
		}
	}
	return nil
}

func (r *PgxRepository) SaveGame(ctx context.Context, rec GameRecord) error {
	standings, err := json.Marshal(rec.Standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO game_results (
			  id, room_id, ep_num, air_date, scoring,
			  num_correct, num_total, standings, ended_at
			) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.RoomID, rec.EpNum, rec.AirDate, rec.Scoring,
			rec.NumCorrect, rec.NumTotal, standings, rec.EndedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, s := range rec.Standings {
			batch.Queue(`
				INSERT INTO game_standings (game_id, participant_id, name, score, rank)
				VALUES ($1,$2,$3,$4,$5)`,
				rec.ID, s.ParticipantID, s.Name, s.Score, i+1)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert standings: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", rec.ID, err)
	}
	return nil
}

func (r *PgxRepository) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, ep_num, COALESCE(air_date, ''), scoring, num_correct, num_total, standings, ended_at
		FROM game_results
		ORDER BY ended_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var (
			rec       GameRecord
			standings []byte
			endedAt   time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.EpNum, &rec.AirDate, &rec.Scoring,
			&rec.NumCorrect, &rec.NumTotal, &standings, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		rec.EndedAt = endedAt.UTC()
		if len(standings) > 0 {
			if err := json.Unmarshal(standings, &rec.Standings); err != nil {
				return nil, fmt.Errorf("failed to decode standings for %s: %w", rec.ID, err)
			}
		}
		games = append(games, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read games: %w", err)
	}
	return games, nil
}

func (r *PgxRepository) TopScores(ctx context.Context, limit int) ([]ScoreEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.game_id, s.participant_id, s.name, s.score, s.rank, g.ended_at
		FROM game_standings s
		JOIN game_results g ON g.id = s.game_id
		ORDER BY s.score DESC, g.ended_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var scores []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.GameID, &e.ParticipantID, &e.Name, &e.Score, &e.Rank, &e.EndedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		e.EndedAt = e.EndedAt.UTC()
		scores = append(scores, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return scores, nil
}
