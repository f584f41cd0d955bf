package chess

var (
	rookDirections   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirections = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	queenDirections  = append(append([][2]int{}, rookDirections...), bishopDirections...)
	kingOffsets      = queenDirections
	knightOffsets    = [][2]int{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
)

// position is the board together with the state the move rules read.
type position struct {
	board Board
	state GameState
}

// rawMoves lists the destinations of the piece on from, ignoring whether the
// move exposes its own king.
func (p *position) rawMoves(from Square) []Square {
	pc, ok := p.board.Get(from)
	if !ok {
		return nil
	}

	switch pc.Kind {
	case Pawn:
		return p.pawnMoves(from, pc.Color)
	case Knight:
		return p.stepMoves(from, pc.Color, knightOffsets)
	case Bishop:
		return p.slidingMoves(from, pc.Color, bishopDirections)
	case Rook:
		return p.slidingMoves(from, pc.Color, rookDirections)
	case Queen:
		return p.slidingMoves(from, pc.Color, queenDirections)
	case King:
		moves := p.stepMoves(from, pc.Color, kingOffsets)
		return append(moves, p.castlingMoves(from, pc.Color)...)
	default:
		return nil
	}
}

func (p *position) pawnMoves(from Square, c Color) []Square {
	var moves []Square
	dir := c.forward()

	one := from.offset(dir, 0)
	if p.board.isEmpty(one) {
		moves = append(moves, one)
		two := from.offset(2*dir, 0)
		if from.Row == c.pawnRow() && p.board.isEmpty(two) {
			moves = append(moves, two)
		}
	}

	for _, dc := range []int{-1, 1} {
		to := from.offset(dir, dc)
		if !to.Valid() {
			continue
		}
		if target, ok := p.board.Get(to); ok {
			if target.Color != c {
				moves = append(moves, to)
			}
			continue
		}
		if _, ok := p.enPassantVictim(c, to); ok {
			moves = append(moves, to)
		}
	}
	return moves
}

// enPassantVictim returns the square of the pawn a c-pawn landing on to would
// capture en passant.
func (p *position) enPassantVictim(c Color, to Square) (Square, bool) {
	if p.state.EnPassant == nil || *p.state.EnPassant != to {
		return Square{}, false
	}
	victim := to.offset(-c.forward(), 0)
	pc, ok := p.board.Get(victim)
	if !ok || pc.Kind != Pawn || pc.Color == c {
		return Square{}, false
	}
	return victim, true
}

func (p *position) stepMoves(from Square, c Color, offsets [][2]int) []Square {
	moves := make([]Square, 0, len(offsets))
	for _, d := range offsets {
		to := from.offset(d[0], d[1])
		if !to.Valid() {
			continue
		}
		if target, ok := p.board.Get(to); ok && target.Color == c {
			continue
		}
		moves = append(moves, to)
	}
	return moves
}

func (p *position) slidingMoves(from Square, c Color, directions [][2]int) []Square {
	var moves []Square
	for _, d := range directions {
		for to := from.offset(d[0], d[1]); to.Valid(); to = to.offset(d[0], d[1]) {
			target, ok := p.board.Get(to)
			if !ok {
				moves = append(moves, to)
				continue
			}
			if target.Color != c {
				moves = append(moves, to)
			}
			break
		}
	}
	return moves
}

func kingHome(c Color) Square {
	return Square{Row: c.backRow(), Col: 4}
}

// castlingMoves offers the king's two-column pseudo-moves. Queen side only
// requires the king's own path to be safe; b1/b8 may be attacked.
func (p *position) castlingMoves(from Square, c Color) []Square {
	if from != kingHome(c) {
		return nil
	}
	rights := p.state.Castling.For(c)
	opp := c.Opponent()
	var moves []Square

	if rights.KingSide &&
		p.hasRook(Square{Row: from.Row, Col: 7}, c) &&
		p.board.isEmpty(from.offset(0, 1)) &&
		p.board.isEmpty(from.offset(0, 2)) &&
		!p.isAttacked(from, opp) &&
		!p.isAttacked(from.offset(0, 1), opp) &&
		!p.isAttacked(from.offset(0, 2), opp) {
		moves = append(moves, from.offset(0, 2))
	}

	if rights.QueenSide &&
		p.hasRook(Square{Row: from.Row, Col: 0}, c) &&
		p.board.isEmpty(from.offset(0, -1)) &&
		p.board.isEmpty(from.offset(0, -2)) &&
		p.board.isEmpty(from.offset(0, -3)) &&
		!p.isAttacked(from, opp) &&
		!p.isAttacked(from.offset(0, -1), opp) &&
		!p.isAttacked(from.offset(0, -2), opp) {
		moves = append(moves, from.offset(0, -2))
	}

	return moves
}

func (p *position) hasRook(sq Square, c Color) bool {
	pc, ok := p.board.Get(sq)
	return ok && pc == Piece{Color: c, Kind: Rook}
}
