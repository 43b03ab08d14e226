package game

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const emptySquare = "·"

// renderBoard draws the position as monospaced text, white's point of view.
func renderBoard(board *nchess.Board) string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		b.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			b.WriteByte(' ')
			b.WriteString(pieceGlyph(board.Piece(nchess.Square(rank*8 + file))))
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h")
	return b.String()
}

func pieceGlyph(piece nchess.Piece) string {
	if piece == nchess.NoPiece {
		return emptySquare
	}
	white := piece.Color() == nchess.White
	switch piece.Type() {
	case nchess.King:
		if white {
			return "♔"
		}
		return "♚"
	case nchess.Queen:
		if white {
			return "♕"
		}
		return "♛"
	case nchess.Rook:
		if white {
			return "♖"
		}
		return "♜"
	case nchess.Bishop:
		if white {
			return "♗"
		}
		return "♝"
	case nchess.Knight:
		if white {
			return "♘"
		}
		return "♞"
	case nchess.Pawn:
		if white {
			return "♙"
		}
		return "♟"
	}
	return emptySquare
}
