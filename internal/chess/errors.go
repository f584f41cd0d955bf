package chess

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Check them with errors.Is.
var (
	// ErrIllegalMove rejects a move that is not in the legal set for the
	// side to move. The engine state is unchanged.
	ErrIllegalMove = errors.New("illegal move")

	// ErrGameNotActive rejects moves after checkmate or stalemate.
	ErrGameNotActive = errors.New("game is not active")

	// ErrPromotionPending rejects a move while a promotion awaits its piece.
	ErrPromotionPending = errors.New("promotion pending")

	ErrNoPendingPromotion = errors.New("no pending promotion")

	// ErrInvalidPromotion rejects promotion to a king, a pawn or nothing.
	ErrInvalidPromotion = errors.New("invalid promotion piece")

	// ErrInvariantViolation means the board lost a king. The game instance
	// cannot continue.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrInvalidFEN = errors.New("invalid FEN")
)

// A move submitted while a promotion is pending is also an illegal move.
var errPendingIllegal = fmt.Errorf("%w: %w", ErrPromotionPending, ErrIllegalMove)

// MoveError explains why a specific (from, to) request was rejected.
type MoveError struct {
	From   Square
	To     Square
	Reason string
	Err    error
}

func (e *MoveError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s to %s", e.Err, e.From, e.To)
	}
	return fmt.Sprintf("%v: %s to %s: %s", e.Err, e.From, e.To, e.Reason)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func illegal(from, to Square, format string, args ...interface{}) error {
	return &MoveError{From: from, To: to, Reason: fmt.Sprintf(format, args...), Err: ErrIllegalMove}
}
