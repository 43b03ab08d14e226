package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Expected schema:
//
//	CREATE TABLE chess_results (
//	    id         TEXT PRIMARY KEY,
//	    room       TEXT NOT NULL,
//	    outcome    TEXT NOT NULL,
//	    winner     TEXT NOT NULL DEFAULT '',
//	    move_count INT  NOT NULL,
//	    moves_san  JSONB NOT NULL,
//	    started_at TIMESTAMPTZ NOT NULL,
//	    ended_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX chess_results_room_idx ON chess_results (room, ended_at DESC);
type repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &repository{db: db}, nil
}

func (r *repository) InsertResult(ctx context.Context, res *Result) error {
	if res == nil {
		return fmt.Errorf("nil result payload")
	}
	moves, err := json.Marshal(res.MovesSAN)
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_results (id, room, outcome, winner, move_count, moves_san, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		res.ID, res.Room, res.Outcome, res.Winner, res.MoveCount, moves, res.StartedAt, res.EndedAt,
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *repository) RecentResults(ctx context.Context, room string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT id, room, outcome, winner, move_count, moves_san, started_at, ended_at
		FROM chess_results
		WHERE room = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer rows.Close()

	results := make([]*Result, 0, limit)
	for rows.Next() {
		var (
			res       Result
			movesJSON []byte
		)
		if err := rows.Scan(&res.ID, &res.Room, &res.Outcome, &res.Winner,
			&res.MoveCount, &movesJSON, &res.StartedAt, &res.EndedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(movesJSON, &res.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

func (r *repository) RoomStats(ctx context.Context, room string) (*Stats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'checkmate'),
			COUNT(*) FILTER (WHERE outcome = 'stalemate'),
			COUNT(*) FILTER (WHERE outcome = 'draw'),
			COUNT(*) FILTER (WHERE outcome = 'resigned'),
			COALESCE(MAX(ended_at), 'epoch'::timestamptz)
		FROM chess_results
		WHERE room = $1`

	stats := &Stats{Room: room}
	if err := r.db.QueryRowContext(ctx, query, room).Scan(
		&stats.Games, &stats.Checkmates, &stats.Stalemates,
		&stats.Draws, &stats.Resignations, &stats.LastPlayedAt,
	); err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}

	const lastQuery = `
		SELECT outcome FROM chess_results
		WHERE room = $1 ORDER BY ended_at DESC LIMIT 1`
	if err := r.db.QueryRowContext(ctx, lastQuery, room).Scan(&stats.LastOutcome); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("select last outcome: %w", err)
	}
	return stats, nil
}
