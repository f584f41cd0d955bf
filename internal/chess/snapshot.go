package chess

// PieceState is one occupied square in a Snapshot.
type PieceState struct {
	Square Square    `json:"square"`
	Color  Color     `json:"color"`
	Kind   PieceKind `json:"kind"`
}

// Snapshot is a read-only view of a game for status displays.
type Snapshot struct {
	FEN              string        `json:"fen"`
	Pieces           []PieceState  `json:"pieces"`
	State            GameState     `json:"state"`
	Check            bool          `json:"check"`
	Status           GameStatus    `json:"status"`
	Result           Result        `json:"result,omitempty"`
	Winner           *Color        `json:"winner,omitempty"`
	Material         MaterialCount `json:"material"`
	PendingPromotion *Move         `json:"pendingPromotion,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		FEN:      e.FEN(),
		Pieces:   make([]PieceState, 0, 32),
		State:    e.State(),
		Check:    e.IsInCheck(e.pos.state.SideToMove),
		Status:   e.Status(),
		Material: e.MaterialCount(),
	}
	snap.Result, snap.Winner = e.Result()
	for _, c := range []Color{White, Black} {
		for _, sq := range e.pos.board.Occupied(c) {
			pc, _ := e.pos.board.Get(sq)
			snap.Pieces = append(snap.Pieces, PieceState{Square: sq, Color: pc.Color, Kind: pc.Kind})
		}
	}
	if m, ok := e.PendingPromotion(); ok {
		snap.PendingPromotion = &m
	}
	return snap
}
