package chess

// probe plays the board effect of from->to, evaluates fn, and restores the
// board exactly on every exit path. Game state is never touched, so no
// en-passant target or castling right can leak out of a probe.
func (p *position) probe(from, to Square, fn func() bool) bool {
	saved := p.board
	defer func() { p.board = saved }()

	pc, _ := p.board.Get(from)
	if pc.Kind == Pawn {
		if victim, ok := p.enPassantVictim(pc.Color, to); ok {
			p.board.Clear(victim)
		}
	}
	p.board.Clear(from)
	p.board.Set(to, pc)
	return fn()
}

// leavesKingInCheck simulates from->to and reports whether c's king would be
// attacked afterwards.
func (p *position) leavesKingInCheck(from, to Square, c Color) bool {
	return p.probe(from, to, func() bool {
		inCheck, err := p.kingInCheck(c)
		return err != nil || inCheck
	})
}

// legalMoves filters rawMoves down to those that keep the mover's king safe.
func (p *position) legalMoves(from Square) []Square {
	pc, ok := p.board.Get(from)
	if !ok {
		return nil
	}
	raw := p.rawMoves(from)
	legal := raw[:0]
	for _, to := range raw {
		if !p.leavesKingInCheck(from, to, pc.Color) {
			legal = append(legal, to)
		}
	}
	return legal
}

func (p *position) allLegalMoves(c Color) []Move {
	var moves []Move
	for _, from := range p.board.Occupied(c) {
		for _, to := range p.legalMoves(from) {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (p *position) hasLegalMove(c Color) bool {
	for _, from := range p.board.Occupied(c) {
		if len(p.legalMoves(from)) > 0 {
			return true
		}
	}
	return false
}

// isPromotion reports whether moving the piece on from to to needs a
// promotion piece.
func (p *position) isPromotion(from, to Square) bool {
	pc, ok := p.board.Get(from)
	return ok && pc.Kind == Pawn && to.Row == pc.Color.promotionRow()
}

// apply commits a legal move and updates every piece of auxiliary state. The
// caller has already validated the move; promo is NoKind unless the move
// promotes. It returns the captured piece, if any.
func (p *position) apply(m Move, promo PieceKind) Piece {
	pc, _ := p.board.Get(m.From)
	captured, _ := p.board.Get(m.To)
	dRow, dCol := m.To.Row-m.From.Row, m.To.Col-m.From.Col

	p.board.Clear(m.From)
	p.board.Set(m.To, pc)

	if pc.Kind == Pawn && captured.IsEmpty() {
		if victim, ok := p.enPassantVictim(pc.Color, m.To); ok {
			captured, _ = p.board.Get(victim)
			p.board.Clear(victim)
		}
	}

	// The en-passant window lasts exactly one ply.
	p.state.EnPassant = nil
	if pc.Kind == Pawn && abs(dRow) == 2 {
		mid := Square{Row: m.From.Row + dRow/2, Col: m.From.Col}
		p.state.EnPassant = &mid
	}

	if pc.Kind == King && abs(dCol) == 2 {
		rookFrom, rookTo := Square{Row: m.From.Row, Col: 7}, m.To.offset(0, -1)
		if dCol < 0 {
			rookFrom, rookTo = Square{Row: m.From.Row, Col: 0}, m.To.offset(0, 1)
		}
		rook, _ := p.board.Get(rookFrom)
		p.board.Clear(rookFrom)
		p.board.Set(rookTo, rook)
	}

	p.revokeCastling(pc, m.From)
	if captured.Kind == Rook {
		p.revokeCastling(captured, m.To)
	}

	if promo != NoKind {
		p.board.Set(m.To, Piece{Color: pc.Color, Kind: promo})
	}

	last := m
	p.state.LastMove = &last
	p.state.SideToMove = pc.Color.Opponent()
	return captured
}

// revokeCastling clears rights for a king or rook leaving (or captured on) sq.
// Rights are never restored.
func (p *position) revokeCastling(pc Piece, sq Square) {
	rights := p.state.Castling.For(pc.Color)
	switch pc.Kind {
	case King:
		rights.KingSide = false
		rights.QueenSide = false
	case Rook:
		if sq.Row != pc.Color.backRow() {
			return
		}
		switch sq.Col {
		case 0:
			rights.QueenSide = false
		case 7:
			rights.KingSide = false
		}
	}
}
