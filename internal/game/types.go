package game

import (
	"errors"
	"fmt"
	"time"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Outcome classifies a finished game.
type Outcome string

const (
	OutcomeOngoing   Outcome = "ongoing"
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeStalemate Outcome = "stalemate"
	OutcomeDraw      Outcome = "draw"
	OutcomeResigned  Outcome = "resigned"
)

var (
	ErrAlreadyActive = errors.New("a game is already active in this room")
	ErrNoActiveGame  = errors.New("no active game in this room")
)

// IllegalMoveError is the single rejection shape for a move the engine would
// not accept, whatever the engine-level cause was.
type IllegalMoveError struct {
	Move   string
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q: %s", e.Move, e.Reason)
}

// Result classifies a position: OutcomeOngoing while play continues, a
// terminal outcome otherwise.
type Result struct {
	Outcome Outcome
	Winner  Color // set for checkmate and resignation only
}

// Game is one in-progress board, keyed by room.
type Game struct {
	ID        string
	Room      string
	Board     Board
	MovesSAN  []string
	MovesUCI  []string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is a read-only view of an active game.
type Snapshot struct {
	ID        string
	BoardText string
	Turn      Color
	MoveCount int
}

// MoveOutcome reports an applied move.
type MoveOutcome struct {
	BoardText string
	Turn      Color
	SAN       string
	UCI       string
	Finished  bool
	Result    Result
	MoveCount int
}
