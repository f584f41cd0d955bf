package chess

import "fmt"

// Square is a (row, col) pair. Row 0 is Black's back rank (rank 8) and
// col 0 is the a-file.
type Square struct {
	Row int
	Col int
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

func (s Square) offset(dr, dc int) Square {
	return Square{Row: s.Row + dr, Col: s.Col + dc}
}

// String returns algebraic notation, e.g. "e2" for row 6, col 4.
func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
	}
	return string([]byte{byte('a' + s.Col), byte('8' - s.Row)})
}

func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("square %s is off the board", s)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// ParseSquare converts algebraic notation ("e4") into a Square.
func ParseSquare(sq string) (Square, error) {
	if len(sq) != 2 {
		return Square{}, fmt.Errorf("invalid square notation %q", sq)
	}

	file := int(sq[0]) - 'a'
	rank := int(sq[1]) - '1'

	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return Square{}, fmt.Errorf("invalid square notation %q", sq)
	}

	return Square{Row: 7 - rank, Col: file}, nil
}

// ParsePromotion maps a piece letter or name to a promotion kind. Anything
// that is not a legal promotion target yields NoKind.
func ParsePromotion(p string) PieceKind {
	switch p {
	case "q", "Q", "queen":
		return Queen
	case "r", "R", "rook":
		return Rook
	case "b", "B", "bishop":
		return Bishop
	case "n", "N", "knight":
		return Knight
	default:
		return NoKind
	}
}
