package game

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// chessEngine adapts corentings/chess as the rules engine.
type chessEngine struct{}

func NewChessEngine() Engine { return chessEngine{} }

func (chessEngine) NewBoard() Board { return nchess.NewGame() }

func (chessEngine) ApplyMove(b Board, move string, n Notation) (string, string, error) {
	game, ok := b.(*nchess.Game)
	if !ok || game == nil {
		return "", "", fmt.Errorf("foreign board type %T", b)
	}
	raw := strings.TrimSpace(move)
	if raw == "" {
		return "", "", &IllegalMoveError{Move: raw, Reason: "empty move text"}
	}

	pos := game.Position()
	move = raw
	var notation nchess.Notation
	switch n {
	case NotationUCI:
		notation = nchess.UCINotation{}
		move = strings.ToLower(move)
	default:
		notation = nchess.AlgebraicNotation{}
	}

	if err := game.PushNotationMove(move, notation, nil); err != nil {
		return "", "", &IllegalMoveError{Move: raw, Reason: "not a legal move in this position"}
	}
	moves := game.Moves()
	last := moves[len(moves)-1]
	san := nchess.AlgebraicNotation{}.Encode(pos, last)
	return san, last.String(), nil
}

func (chessEngine) Terminal(b Board) (Result, bool) {
	game, ok := b.(*nchess.Game)
	if !ok || game == nil {
		return Result{Outcome: OutcomeOngoing}, false
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		return Result{Outcome: OutcomeCheckmate, Winner: White}, true
	case nchess.BlackWon:
		return Result{Outcome: OutcomeCheckmate, Winner: Black}, true
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return Result{Outcome: OutcomeStalemate}, true
		}
		return Result{Outcome: OutcomeDraw}, true
	default:
		return Result{Outcome: OutcomeOngoing}, false
	}
}

func (chessEngine) Turn(b Board) Color {
	game, ok := b.(*nchess.Game)
	if !ok || game == nil {
		return White
	}
	if game.Position().Turn() == nchess.Black {
		return Black
	}
	return White
}

func (chessEngine) Render(b Board) string {
	game, ok := b.(*nchess.Game)
	if !ok || game == nil {
		return ""
	}
	return renderBoard(game.Position().Board())
}
