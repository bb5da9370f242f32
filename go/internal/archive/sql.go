package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Dialect is the SQL flavor behind a *sql.DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var schemas = map[Dialect][]string{
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS game_results (
			id          TEXT PRIMARY KEY,
			room_id     TEXT NOT NULL,
			ep_num      TEXT NOT NULL,
			air_date    TEXT,
			scoring     TEXT NOT NULL,
			num_correct INTEGER NOT NULL,
			num_total   INTEGER NOT NULL,
			standings   JSONB,
			ended_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS game_standings (
			game_id        TEXT NOT NULL REFERENCES game_results(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL,
			name           TEXT NOT NULL,
			score          INTEGER NOT NULL,
			rank           INTEGER NOT NULL,
			PRIMARY KEY (game_id, participant_id)
		)`,
		`CREATE INDEX IF NOT EXISTS game_results_ended_at_idx ON game_results (ended_at DESC)`,
	},
	DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS game_results (
			id          TEXT PRIMARY KEY,
			room_id     TEXT NOT NULL,
			ep_num      TEXT NOT NULL,
			air_date    TEXT,
			scoring     TEXT NOT NULL,
			num_correct INTEGER NOT NULL,
			num_total   INTEGER NOT NULL,
			standings   BLOB,
			ended_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS game_standings (
			game_id        TEXT NOT NULL REFERENCES game_results(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL,
			name           TEXT NOT NULL,
			score          INTEGER NOT NULL,
			rank           INTEGER NOT NULL,
			PRIMARY KEY (game_id, participant_id)
		)`,
		`CREATE INDEX IF NOT EXISTS game_results_ended_at_idx ON game_results (ended_at DESC)`,
	},
}

// SQLRepository archives games through database/sql. It serves Postgres via
// lib/pq and SQLite via modernc.org/sqlite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	stmts, ok := schemas[r.dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", r.dialect)
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate archive: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) SaveGame(ctx context.Context, rec GameRecord) error {
	standings, err := json.Marshal(rec.Standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	err = sqlutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO game_results (
			  id, room_id, ep_num, air_date, scoring,
			  num_correct, num_total, standings, ended_at
			) VALUES (?,?,?,?,?,?,?,?,?)
			ON CONFLICT (id) DO NOTHING`),
			rec.ID, rec.RoomID, rec.EpNum, sqlutil.ToSqlString(rec.AirDate), rec.Scoring,
			rec.NumCorrect, rec.NumTotal, sqlutil.ToNullRawMessage(standings), formatTime(rec.EndedAt),
		)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Already archived by an earlier delivery.
			return nil
		}

		for i, s := range rec.Standings {
			if _, err := tx.ExecContext(ctx, r.rebind(`
				INSERT INTO game_standings (game_id, participant_id, name, score, rank)
				VALUES (?,?,?,?,?)`),
				rec.ID, s.ParticipantID, s.Name, s.Score, i+1,
			); err != nil {
				return fmt.Errorf("insert standing %s: %w", s.ParticipantID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLRepository) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, room_id, ep_num, air_date, scoring, num_correct, num_total, standings, ended_at
		FROM game_results
		ORDER BY ended_at DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var (
			rec       GameRecord
			airDate   sql.NullString
			standings pqtype.NullRawMessage
			endedAt   timeValue
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.EpNum, &airDate, &rec.Scoring,
			&rec.NumCorrect, &rec.NumTotal, &standings, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		rec.AirDate = sqlutil.FromSqlString(airDate)
		rec.EndedAt = endedAt.t
		if raw := sqlutil.FromNullRawMessage(standings); raw != nil {
			if err := json.Unmarshal(raw, &rec.Standings); err != nil {
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

func (r *SQLRepository) TopScores(ctx context.Context, limit int) ([]ScoreEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT s.game_id, s.participant_id, s.name, s.score, s.rank, g.ended_at
		FROM game_standings s
		JOIN game_results g ON g.id = s.game_id
		ORDER BY s.score DESC, g.ended_at ASC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var scores []ScoreEntry
	for rows.Next() {
		var (
			e       ScoreEntry
			endedAt timeValue
		)
		if err := rows.Scan(&e.GameID, &e.ParticipantID, &e.Name, &e.Score, &e.Rank, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		e.EndedAt = endedAt.t
		scores = append(scores, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	return scores, nil
}

// timeValue scans a TIMESTAMPTZ (Postgres) or a timeLayout string (SQLite).
type timeValue struct {
	t time.Time
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.t = s.UTC()
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	case nil:
		v.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (v *timeValue) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", s, err)
	}
	v.t = t.UTC()
	return nil
}
