package chess

import (
	"fmt"
	"strings"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// NewEngineFromFEN loads a position. The halfmove and fullmove fields are
// optional and ignored since the engine keeps no clocks. A position that is
// already checkmate or stalemate loads as a finished game.
func NewEngineFromFEN(fen string) (*Engine, error) {
	pos, err := decodeFEN(fen)
	if err != nil {
		return nil, err
	}

	e := &Engine{pos: pos}
	e.evaluateTerminal(pos.state.SideToMove.Opponent())
	return e, nil
}

// ValidateFEN reports whether fen describes a loadable position.
func ValidateFEN(fen string) error {
	_, err := decodeFEN(fen)
	return err
}

func decodeFEN(fen string) (position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 4 && len(fields) != 6 {
		return position{}, fmt.Errorf("%w: expected 4 or 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	var pos position
	if err := decodePlacement(&pos.board, fields[0]); err != nil {
		return position{}, err
	}

	side, err := ParseColor(fields[1])
	if err != nil || len(fields[1]) != 1 {
		return position{}, fmt.Errorf("%w: bad side to move %q", ErrInvalidFEN, fields[1])
	}
	pos.state.SideToMove = side
	pos.state.Active = true

	if err := decodeCastling(&pos, fields[2]); err != nil {
		return position{}, err
	}

	if fields[3] != "-" {
		ep, err := ParseSquare(fields[3])
		if err != nil {
			return position{}, fmt.Errorf("%w: bad en-passant square %q", ErrInvalidFEN, fields[3])
		}
		// The target sits behind a pawn of the side that just moved.
		if ep.Row != side.Opponent().pawnRow()+side.Opponent().forward() {
			return position{}, fmt.Errorf("%w: en-passant square %s on the wrong rank", ErrInvalidFEN, ep)
		}
		pos.state.EnPassant = &ep
	}

	for _, c := range []Color{White, Black} {
		if n := pos.board.count(Piece{Color: c, Kind: King}); n != 1 {
			return position{}, fmt.Errorf("%w: %w: %d %s kings", ErrInvalidFEN, ErrInvariantViolation, n, c)
		}
	}
	if inCheck, _ := pos.kingInCheck(side.Opponent()); inCheck {
		return position{}, fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}
	return pos, nil
}

func decodePlacement(b *Board, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		for _, ch := range rank {
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			pc, ok := pieceFromLetter(ch)
			if !ok {
				return fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			if col > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, 8-row)
			}
			if pc.Kind == Pawn && (row == 0 || row == 7) {
				return fmt.Errorf("%w: pawn on rank %d", ErrInvalidFEN, 8-row)
			}
			b.Set(Square{Row: row, Col: col}, pc)
			col++
		}
		if col != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-row, col)
		}
	}
	return nil
}

// decodeCastling sets rights and drops any whose king or rook is not home.
func decodeCastling(pos *position, field string) error {
	if field == "-" {
		return nil
	}
	for _, ch := range field {
		switch ch {
		case 'K':
			pos.state.Castling.White.KingSide = true
		case 'Q':
			pos.state.Castling.White.QueenSide = true
		case 'k':
			pos.state.Castling.Black.KingSide = true
		case 'q':
			pos.state.Castling.Black.QueenSide = true
		default:
			return fmt.Errorf("%w: bad castling field %q", ErrInvalidFEN, field)
		}
	}
	for _, c := range []Color{White, Black} {
		rights := pos.state.Castling.For(c)
		home := kingHome(c)
		if pc, _ := pos.board.Get(home); pc != (Piece{Color: c, Kind: King}) {
			*rights = CastlingRights{}
			continue
		}
		if !pos.hasRook(Square{Row: home.Row, Col: 7}, c) {
			rights.KingSide = false
		}
		if !pos.hasRook(Square{Row: home.Row, Col: 0}, c) {
			rights.QueenSide = false
		}
	}
	return nil
}

func pieceFromLetter(ch rune) (Piece, bool) {
	color := White
	if ch >= 'a' && ch <= 'z' {
		color = Black
		ch -= 'a' - 'A'
	}
	var kind PieceKind
	switch ch {
	case 'P':
		kind = Pawn
	case 'N':
		kind = Knight
	case 'B':
		kind = Bishop
	case 'R':
		kind = Rook
	case 'Q':
		kind = Queen
	case 'K':
		kind = King
	default:
		return NoPiece, false
	}
	return Piece{Color: color, Kind: kind}, true
}

// FEN renders the current position. Clocks are always "0 1".
func (e *Engine) FEN() string {
	var sb strings.Builder
	b := &e.pos.board
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			pc, ok := b.Get(Square{Row: row, Col: col})
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				fmt.Fprintf(&sb, "%d", empty)
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			fmt.Fprintf(&sb, "%d", empty)
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	s := e.pos.state
	sb.WriteByte(' ')
	sb.WriteString(s.SideToMove.String()[:1])

	sb.WriteByte(' ')
	rights := ""
	if s.Castling.White.KingSide {
		rights += "K"
	}
	if s.Castling.White.QueenSide {
		rights += "Q"
	}
	if s.Castling.Black.KingSide {
		rights += "k"
	}
	if s.Castling.Black.QueenSide {
		rights += "q"
	}
	if rights == "" {
		rights = "-"
	}
	sb.WriteString(rights)

	sb.WriteByte(' ')
	if s.EnPassant != nil {
		sb.WriteString(s.EnPassant.String())
	} else {
		sb.WriteByte('-')
	}
	sb.WriteString(" 0 1")
	return sb.String()
}
