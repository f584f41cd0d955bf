package chess

import (
	"fmt"
	"strings"
)

type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// forward is the row delta of a pawn advance. White moves toward row 0.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

func (c Color) pawnRow() int {
	if c == White {
		return 6
	}
	return 1
}

func (c Color) backRow() int {
	if c == White {
		return 7
	}
	return 0
}

// promotionRow is the opponent's back rank.
func (c Color) promotionRow() int {
	return c.Opponent().backRow()
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	color, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = color
	return nil
}

// ParseColor accepts "white"/"black" and the FEN letters "w"/"b".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown color %q", s)
	}
}

type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = map[PieceKind]string{
	NoKind: "",
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

func (k PieceKind) String() string {
	return kindNames[k]
}

// Letter is the lower-case FEN letter of the kind.
func (k PieceKind) Letter() string {
	switch k {
	case Pawn:
		return "p"
	case Rook:
		return "r"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Queen:
		return "q"
	case King:
		return "k"
	}
	return ""
}

// IsPromotion reports whether a pawn may promote to k.
func (k PieceKind) IsPromotion() bool {
	return k == Queen || k == Rook || k == Bishop || k == Knight
}

func (k PieceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PieceKind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	if kind := ParsePromotion(s); kind != NoKind {
		*k = kind
		return nil
	}
	return fmt.Errorf("unknown piece kind %q", text)
}

// Piece is an immutable (color, kind) pair. The zero value is an empty cell.
type Piece struct {
	Color Color     `json:"color"`
	Kind  PieceKind `json:"kind"`
}

// NoPiece marks an empty square.
var NoPiece = Piece{}

func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}

// String returns the FEN letter, upper case for White.
func (p Piece) String() string {
	if p.IsEmpty() {
		return "."
	}
	if p.Color == White {
		return strings.ToUpper(p.Kind.Letter())
	}
	return p.Kind.Letter()
}

// Move is a (from, to) coordinate pair.
type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

func (m Move) String() string {
	return m.From.String() + m.To.String()
}

// CastlingRights records eligibility, not current legality.
type CastlingRights struct {
	KingSide  bool `json:"kingSide"`
	QueenSide bool `json:"queenSide"`
}

type Castling struct {
	White CastlingRights `json:"white"`
	Black CastlingRights `json:"black"`
}

func (c *Castling) For(color Color) *CastlingRights {
	if color == White {
		return &c.White
	}
	return &c.Black
}

// GameState is the auxiliary state that board contents alone cannot tell.
type GameState struct {
	SideToMove Color    `json:"sideToMove"`
	Castling   Castling `json:"castling"`
	EnPassant  *Square  `json:"enPassant,omitempty"`
	LastMove   *Move    `json:"lastMove,omitempty"`
	Active     bool     `json:"active"`
}

func initialState() GameState {
	all := CastlingRights{KingSide: true, QueenSide: true}
	return GameState{
		SideToMove: White,
		Castling:   Castling{White: all, Black: all},
		Active:     true,
	}
}

type GameStatus string

const (
	StatusActive   GameStatus = "active"
	StatusDraw     GameStatus = "draw"
	StatusWhiteWon GameStatus = "white_won"
	StatusBlackWon GameStatus = "black_won"
)

// Result names how a finished game ended.
type Result string

const (
	NoResult        Result = ""
	ResultCheckmate Result = "checkmate"
	ResultStalemate Result = "stalemate"
)

type OutcomeKind string

const (
	OutcomeApplied          OutcomeKind = "applied"
	OutcomePromotionPending OutcomeKind = "promotion_pending"
	OutcomeGameOver         OutcomeKind = "game_over"
)

// MoveOutcome describes what a submitted move did. Rejections are returned as
// errors instead.
type MoveOutcome struct {
	Kind      OutcomeKind `json:"kind"`
	Move      Move        `json:"move"`
	Promotion PieceKind   `json:"promotion,omitempty"`
	Captured  *Piece      `json:"captured,omitempty"`
	Check     bool        `json:"check"`
	Checkmate bool        `json:"checkmate"`
	Stalemate bool        `json:"stalemate"`
	GameOver  bool        `json:"gameOver"`
	Result    Result      `json:"result,omitempty"`
	Winner    *Color      `json:"winner,omitempty"`
	// PendingSquare is where the promoting pawn will land.
	PendingSquare *Square   `json:"pendingSquare,omitempty"`
	State         GameState `json:"state"`
}

// MaterialCount represents the material count for both sides
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// StandardPieceValues maps piece kinds to their standard values
var StandardPieceValues = map[PieceKind]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   0, // King has no material value
}
