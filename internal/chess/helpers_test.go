package chess

import (
	"sort"
	"testing"
)

func mustSquare(t *testing.T, s string) Square {
	t.Helper()
	sq, err := ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return sq
}

func mustFEN(t *testing.T, fen string) *Engine {
	t.Helper()
	e, err := NewEngineFromFEN(fen)
	if err != nil {
		t.Fatalf("Failed to create engine from FEN %q: %v", fen, err)
	}
	return e
}

// play submits moves written as "e2e4", with an optional fifth promotion
// letter ("a7a8q"), and returns the outcome of the last one.
func play(t *testing.T, e *Engine, moves ...string) MoveOutcome {
	t.Helper()
	var out MoveOutcome
	for _, mv := range moves {
		from, to := mustSquare(t, mv[:2]), mustSquare(t, mv[2:4])
		var err error
		out, err = e.SubmitMove(from, to)
		if err != nil {
			t.Fatalf("move %s failed: %v\n%s", mv, err, e.pos.board.String())
		}
		if len(mv) == 5 {
			out, err = e.ResolvePromotion(ParsePromotion(mv[4:]))
			if err != nil {
				t.Fatalf("promotion %s failed: %v", mv, err)
			}
		}
	}
	return out
}

// squareNames renders squares in sorted algebraic form for comparisons.
func squareNames(squares []Square) []string {
	names := make([]string, 0, len(squares))
	for _, sq := range squares {
		names = append(names, sq.String())
	}
	sort.Strings(names)
	return names
}

func legalFrom(t *testing.T, e *Engine, from string) []string {
	t.Helper()
	return squareNames(e.LegalMoves(mustSquare(t, from)))
}
