package chess

import (
	"fmt"
	"strings"
)

// Board is pure storage for the 8x8 grid. It performs no legality checks.
// Being an array it copies by value, which the check-safety probe relies on.
type Board struct {
	cells [8][8]Piece
}

var backRank = [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartingBoard returns the standard initial position.
func StartingBoard() Board {
	var b Board
	for col, kind := range backRank {
		b.cells[Black.backRow()][col] = Piece{Color: Black, Kind: kind}
		b.cells[Black.pawnRow()][col] = Piece{Color: Black, Kind: Pawn}
		b.cells[White.pawnRow()][col] = Piece{Color: White, Kind: Pawn}
		b.cells[White.backRow()][col] = Piece{Color: White, Kind: kind}
	}
	return b
}

// Get returns the piece on sq and whether the square is occupied.
func (b *Board) Get(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return NoPiece, false
	}
	p := b.cells[sq.Row][sq.Col]
	return p, !p.IsEmpty()
}

// Set places p on sq, replacing whatever was there. Setting NoPiece empties it.
func (b *Board) Set(sq Square, p Piece) {
	if !sq.Valid() {
		return
	}
	b.cells[sq.Row][sq.Col] = p
}

func (b *Board) Clear(sq Square) {
	b.Set(sq, NoPiece)
}

func (b *Board) isEmpty(sq Square) bool {
	_, occupied := b.Get(sq)
	return sq.Valid() && !occupied
}

// FindKing locates the king of the given color.
func (b *Board) FindKing(c Color) (Square, error) {
	king := Piece{Color: c, Kind: King}
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			if b.cells[r][col] == king {
				return Square{Row: r, Col: col}, nil
			}
		}
	}
	return Square{}, fmt.Errorf("%w: no %s king on the board", ErrInvariantViolation, c)
}

// Occupied lists every occupied square of color c in row-major order.
func (b *Board) Occupied(c Color) []Square {
	squares := make([]Square, 0, 16)
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			p := b.cells[r][col]
			if !p.IsEmpty() && p.Color == c {
				squares = append(squares, Square{Row: r, Col: col})
			}
		}
	}
	return squares
}

func (b *Board) count(p Piece) int {
	n := 0
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			if b.cells[r][col] == p {
				n++
			}
		}
	}
	return n
}

// String draws the board from White's side, rank 8 first.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		fmt.Fprintf(&sb, "%d ", 8-r)
		for col := 0; col < 8; col++ {
			sb.WriteString(b.cells[r][col].String())
			if col < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
