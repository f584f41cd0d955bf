package chess

// isAttacked reports whether any piece of color by attacks target.
//
// Pawns attack their two forward diagonals whether or not anything stands
// there. Kings contribute their eight neighbours only, never castling
// destinations, which keeps castling safety from querying itself.
func (p *position) isAttacked(target Square, by Color) bool {
	for _, from := range p.board.Occupied(by) {
		pc, _ := p.board.Get(from)
		switch pc.Kind {
		case Pawn:
			if from.Row+by.forward() == target.Row && abs(from.Col-target.Col) == 1 {
				return true
			}
		case King:
			if from != target && abs(from.Row-target.Row) <= 1 && abs(from.Col-target.Col) <= 1 {
				return true
			}
		default:
			for _, to := range p.rawMoves(from) {
				if to == target {
					return true
				}
			}
		}
	}
	return false
}

// kingInCheck reports whether c's king is attacked. A missing king is an
// invariant violation and is returned as an error.
func (p *position) kingInCheck(c Color) (bool, error) {
	king, err := p.board.FindKing(c)
	if err != nil {
		return false, err
	}
	return p.isAttacked(king, c.Opponent()), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
