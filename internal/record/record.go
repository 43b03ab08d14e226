// Package record keeps finished-game results for reporting. It is a
// best-effort archive behind the live session stores, never a recovery
// mechanism: losing it costs history, not state.
package record

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Result is one finished game.
type Result struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Outcome   string    `json:"outcome"`
	Winner    string    `json:"winner,omitempty"`
	MoveCount int       `json:"move_count"`
	MovesSAN  []string  `json:"moves_san"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Stats is the per-room tally of finished games.
type Stats struct {
	Room         string
	Games        int
	Checkmates   int
	Stalemates   int
	Draws        int
	Resignations int
	LastOutcome  string
	LastPlayedAt time.Time
}

type Repository interface {
	InsertResult(ctx context.Context, res *Result) error
	RecentResults(ctx context.Context, room string, limit int) ([]*Result, error)
	RoomStats(ctx context.Context, room string) (*Stats, error)
}

// Sink receives terminal outcomes from the game store.
type Sink interface {
	RecordResult(ctx context.Context, res *Result) error
}

// Recorder fans a result out to the repository and, when configured, the
// recent-results cache. Failures are logged and swallowed so that finishing a
// game never fails on archival.
type Recorder struct {
	repo   Repository
	cache  *Cache
	logger *zap.Logger
}

func NewRecorder(repo Repository, cache *Cache, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, cache: cache, logger: logger}
}

func (r *Recorder) RecordResult(ctx context.Context, res *Result) error {
	if r == nil || res == nil {
		return nil
	}
	if r.repo != nil {
		if err := r.repo.InsertResult(ctx, res); err != nil {
			r.logger.Error("result_persist_error",
				zap.String("game_id", res.ID),
				zap.String("room", res.Room),
				zap.Error(err),
			)
		}
	}
	if r.cache != nil {
		if err := r.cache.Push(ctx, res); err != nil {
			r.logger.Warn("result_cache_error",
				zap.String("game_id", res.ID),
				zap.String("room", res.Room),
				zap.Error(err),
			)
		}
	}
	r.logger.Info("result_recorded",
		zap.String("game_id", res.ID),
		zap.String("room", res.Room),
		zap.String("outcome", res.Outcome),
	)
	return nil
}
