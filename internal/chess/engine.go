package chess

import (
	"fmt"
	"slices"
)

// Engine owns the board and game state of one game. It is not safe for
// concurrent use; hosts serialise calls per engine.
type Engine struct {
	pos     position
	pending *Move
	result  Result
	winner  *Color
	fault   error
}

func NewEngine() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

// Reset discards the game and sets up the standard initial position.
func (e *Engine) Reset() {
	e.pos = position{board: StartingBoard(), state: initialState()}
	e.pending = nil
	e.result = NoResult
	e.winner = nil
	e.fault = nil
}

// Board returns a copy of the current board.
func (e *Engine) Board() Board {
	return e.pos.board
}

// State returns a snapshot of the auxiliary game state.
func (e *Engine) State() GameState {
	s := e.pos.state
	if s.EnPassant != nil {
		ep := *s.EnPassant
		s.EnPassant = &ep
	}
	if s.LastMove != nil {
		last := *s.LastMove
		s.LastMove = &last
	}
	return s
}

// LegalMoves lists the destinations the piece on from may move to. Squares
// holding no piece, or a piece of the side not to move, have none, and
// nothing moves while a promotion is pending.
func (e *Engine) LegalMoves(from Square) []Square {
	pc, ok := e.pos.board.Get(from)
	if !ok || pc.Color != e.pos.state.SideToMove || !e.IsGameActive() || e.pending != nil {
		return nil
	}
	return e.pos.legalMoves(from)
}

// AllLegalMoves lists every legal move of the side to move.
func (e *Engine) AllLegalMoves() []Move {
	if !e.IsGameActive() || e.pending != nil {
		return nil
	}
	return e.pos.allLegalMoves(e.pos.state.SideToMove)
}

// SubmitMove validates and applies from->to for the side to move. A pawn
// reaching the far rank leaves the board untouched and returns
// OutcomePromotionPending; ResolvePromotion completes it.
func (e *Engine) SubmitMove(from, to Square) (MoveOutcome, error) {
	if err := e.checkPlayable(); err != nil {
		return MoveOutcome{}, err
	}
	if e.pending != nil {
		return MoveOutcome{}, &MoveError{From: from, To: to, Reason: "resolve the pending promotion first", Err: errPendingIllegal}
	}
	if !from.Valid() || !to.Valid() {
		return MoveOutcome{}, illegal(from, to, "square off the board")
	}

	pc, ok := e.pos.board.Get(from)
	if !ok {
		return MoveOutcome{}, illegal(from, to, "no piece on %s", from)
	}
	side := e.pos.state.SideToMove
	if pc.Color != side {
		return MoveOutcome{}, illegal(from, to, "it is %s to move", side)
	}
	if !slices.Contains(e.pos.legalMoves(from), to) {
		return MoveOutcome{}, illegal(from, to, "%s cannot reach %s", pc.Kind, to)
	}

	m := Move{From: from, To: to}
	if e.pos.isPromotion(from, to) {
		e.pending = &m
		landing := to
		return MoveOutcome{
			Kind:          OutcomePromotionPending,
			Move:          m,
			PendingSquare: &landing,
			Check:         e.IsInCheck(side),
			State:         e.State(),
		}, nil
	}
	return e.complete(m, NoKind), nil
}

// ResolvePromotion supplies the piece for the pending promotion and finishes
// the move. An invalid kind leaves the promotion pending.
func (e *Engine) ResolvePromotion(kind PieceKind) (MoveOutcome, error) {
	if e.fault != nil {
		return MoveOutcome{}, e.fault
	}
	if e.pending == nil {
		return MoveOutcome{}, ErrNoPendingPromotion
	}
	if !kind.IsPromotion() {
		return MoveOutcome{}, fmt.Errorf("%w: %q", ErrInvalidPromotion, kind)
	}
	m := *e.pending
	e.pending = nil
	return e.complete(m, kind), nil
}

// PendingPromotion returns the move awaiting a promotion piece, if any.
func (e *Engine) PendingPromotion() (Move, bool) {
	if e.pending == nil {
		return Move{}, false
	}
	return *e.pending, true
}

// IsInCheck reports whether c's king is attacked.
func (e *Engine) IsInCheck(c Color) bool {
	inCheck, err := e.pos.kingInCheck(c)
	return err == nil && inCheck
}

func (e *Engine) IsGameActive() bool {
	return e.pos.state.Active && e.fault == nil
}

// Result reports how the game ended and who won. The winner is nil for a
// stalemate or an unfinished game.
func (e *Engine) Result() (Result, *Color) {
	if e.winner == nil {
		return e.result, nil
	}
	w := *e.winner
	return e.result, &w
}

func (e *Engine) Status() GameStatus {
	switch {
	case e.result == ResultStalemate:
		return StatusDraw
	case e.winner != nil && *e.winner == White:
		return StatusWhiteWon
	case e.winner != nil && *e.winner == Black:
		return StatusBlackWon
	default:
		return StatusActive
	}
}

// Err returns the fault that stopped this game instance, if any.
func (e *Engine) Err() error {
	return e.fault
}

func (e *Engine) checkPlayable() error {
	if e.fault != nil {
		return e.fault
	}
	if !e.pos.state.Active {
		return ErrGameNotActive
	}
	for _, c := range []Color{White, Black} {
		if err := e.verifyKing(c); err != nil {
			return err
		}
	}
	return nil
}

// verifyKing enforces exactly one king of color c. A violation is fatal for
// the instance.
func (e *Engine) verifyKing(c Color) error {
	if n := e.pos.board.count(Piece{Color: c, Kind: King}); n != 1 {
		e.fault = fmt.Errorf("%w: found %d %s kings", ErrInvariantViolation, n, c)
		e.pos.state.Active = false
		return e.fault
	}
	return nil
}

// complete applies m and runs the terminal-state check for the side that is
// now to move.
func (e *Engine) complete(m Move, promo PieceKind) MoveOutcome {
	mover := e.pos.state.SideToMove
	captured := e.pos.apply(m, promo)

	out := MoveOutcome{
		Kind:      OutcomeApplied,
		Move:      m,
		Promotion: promo,
	}
	if !captured.IsEmpty() {
		out.Captured = &captured
	}

	e.evaluateTerminal(mover)
	side := e.pos.state.SideToMove
	out.Check = e.IsInCheck(side)
	if !e.pos.state.Active {
		out.Kind = OutcomeGameOver
		out.GameOver = true
		out.Result, out.Winner = e.Result()
		out.Checkmate = out.Result == ResultCheckmate
		out.Stalemate = out.Result == ResultStalemate
	}
	out.State = e.State()
	return out
}

// evaluateTerminal ends the game when the side to move has no legal move:
// checkmate if its king is attacked (lastMover wins), stalemate otherwise.
func (e *Engine) evaluateTerminal(lastMover Color) {
	side := e.pos.state.SideToMove
	if e.pos.hasLegalMove(side) {
		return
	}
	e.pos.state.Active = false
	if e.IsInCheck(side) {
		e.result = ResultCheckmate
		winner := lastMover
		e.winner = &winner
		return
	}
	e.result = ResultStalemate
}
