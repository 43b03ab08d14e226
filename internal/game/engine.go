package game

// Notation selects a move text format.
type Notation int

const (
	NotationSAN Notation = iota
	NotationUCI
)

// Board is opaque to the session store; only the engine that produced it may
// interpret it.
type Board interface{}

// Engine owns rule legality. The store treats every call as potentially slow
// and keeps the per-room lock held across it.
type Engine interface {
	NewBoard() Board
	// ApplyMove mutates the board. It returns the move in both notations, or
	// an *IllegalMoveError when the text does not name a legal move in the
	// given notation.
	ApplyMove(b Board, move string, n Notation) (san, uci string, err error)
	// Terminal reports whether no further moves are legal, with the
	// classification.
	Terminal(b Board) (Result, bool)
	Turn(b Board) Color
	Render(b Board) string
}
