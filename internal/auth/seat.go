// Package auth issues and verifies seat tokens. A seat token lets its holder
// move the pieces of one colour in one game.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/justinabrahms/chessrules/internal/chess"
)

const issuerName = "chessrules"

var (
	ErrInvalidToken = errors.New("invalid seat token")
	ErrWrongSeat    = errors.New("seat token does not match")
)

// SeatClaims binds a token to a game and a colour.
type SeatClaims struct {
	GameID string      `json:"gid"`
	Color  chess.Color `json:"color"`
	jwt.RegisteredClaims
}

// Issuer signs seat tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret is replaced with 32 random
// bytes. A zero ttl issues tokens without an expiry.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate seat secret: %w", err)
		}
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for the given seat.
func (i *Issuer) Issue(gameID string, color chess.Color) (string, error) {
	now := i.now()
	claims := SeatClaims{
		GameID: gameID,
		Color:  color,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuerName,
			Subject:  fmt.Sprintf("%s/%s", gameID, color),
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
func (i *Issuer) Verify(tokenString string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.GameID == "" {
		return nil, fmt.Errorf("%w: missing game ID", ErrInvalidToken)
	}
	return claims, nil
}

// Authorize verifies a token and checks that it holds the seat of color in
// gameID.
func (i *Issuer) Authorize(tokenString, gameID string, color chess.Color) error {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return err
	}
	if claims.GameID != gameID || claims.Color != color {
		return fmt.Errorf("%w: token is for %s in game %s", ErrWrongSeat, claims.Color, claims.GameID)
	}
	return nil
}
