// Package archive stores finished games in PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-web/internal/rules"
)

// Result is a finished game.
type Result struct {
	GameID      string
	Label       string
	Status      rules.Status
	MovesSAN    []string
	MovesUCI    []string
	PGN         string
	TimeControl string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Outcome maps the status to the stored result column: white, black or draw.
func (r Result) Outcome() string {
	if !r.Status.Over {
		return ""
	}
	switch r.Status.Winner {
	case rules.White:
		return "white"
	case rules.Black:
		return "black"
	default:
		return "draw"
	}
}

// DurationMillis is EndedAt-StartedAt, never negative.
func (r Result) DurationMillis() int64 {
	d := r.EndedAt.Sub(r.StartedAt).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

const schema = `CREATE TABLE IF NOT EXISTS chess_games (
	game_id      TEXT PRIMARY KEY,
	label        TEXT NOT NULL DEFAULT '',
	time_control TEXT NOT NULL DEFAULT '',
	result       TEXT NOT NULL,
	result_token TEXT NOT NULL,
	method       TEXT NOT NULL DEFAULT '',
	moves_uci    JSONB NOT NULL,
	moves_san    JSONB NOT NULL,
	pgn          TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
)`

const upsert = `INSERT INTO chess_games (
	game_id, label, time_control,
	result, result_token, method, moves_uci, moves_san, pgn,
	started_at, ended_at, duration_ms
  ) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
  ) ON CONFLICT (game_id) DO UPDATE SET
	label=EXCLUDED.label,
	time_control=EXCLUDED.time_control,
	result=EXCLUDED.result,
	result_token=EXCLUDED.result_token,
	method=EXCLUDED.method,
	moves_uci=EXCLUDED.moves_uci,
	moves_san=EXCLUDED.moves_san,
	pgn=EXCLUDED.pgn,
	started_at=EXCLUDED.started_at,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// EnsureSchema creates the chess_games table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create chess_games: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game. A nil repository is a no-op.
func (r *Repository) SaveResult(ctx context.Context, res Result) error {
	if r == nil || r.db == nil || strings.TrimSpace(res.GameID) == "" {
		return nil
	}
	values, err := args(res)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsert, values...); err != nil {
		return fmt.Errorf("save result %s: %w", res.GameID, err)
	}
	return nil
}

func args(res Result) ([]any, error) {
	uciRaw, err := json.Marshal(nonNil(res.MovesUCI))
	if err != nil {
		return nil, fmt.Errorf("marshal moves_uci: %w", err)
	}
	sanRaw, err := json.Marshal(nonNil(res.MovesSAN))
	if err != nil {
		return nil, fmt.Errorf("marshal moves_san: %w", err)
	}
	return []any{
		res.GameID, res.Label, res.TimeControl,
		res.Outcome(), rules.ResultToken(res.Status), string(res.Status.Reason),
		string(uciRaw), string(sanRaw), res.PGN,
		res.StartedAt, res.EndedAt, res.DurationMillis(),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
