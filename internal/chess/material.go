package chess

// GetPieceValues returns the standard piece values keyed by kind name.
func (e *Engine) GetPieceValues() map[string]int {
	values := make(map[string]int, len(StandardPieceValues))
	for kind, v := range StandardPieceValues {
		values[kind.String()] = v
	}
	return values
}

// MaterialCount sums piece values per side.
func (e *Engine) MaterialCount() MaterialCount {
	var count MaterialCount
	for _, c := range []Color{White, Black} {
		total := 0
		for _, sq := range e.pos.board.Occupied(c) {
			pc, _ := e.pos.board.Get(sq)
			total += StandardPieceValues[pc.Kind]
		}
		if c == White {
			count.White = total
		} else {
			count.Black = total
		}
	}
	return count
}

// MaterialBalance is White's material minus Black's.
func (e *Engine) MaterialBalance() int {
	count := e.MaterialCount()
	return count.White - count.Black
}
