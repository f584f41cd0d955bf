// Package game keeps live chess games in memory and serialises access to
// each one.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justinabrahms/chessrules/internal/chess"
	"github.com/rs/zerolog/log"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrStoreFull    = errors.New("game store is full")
)

// Session is one hosted game. All engine access goes through Do, which holds
// the session lock, so an engine never sees concurrent calls.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	engine       *chess.Engine
	lastActivity time.Time
	now          func() time.Time
}

// Do runs fn with exclusive access to the game's engine and records the
// activity.
func (s *Session) Do(fn func(*chess.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
	return fn(s.engine)
}

// Snapshot returns the current view of the game.
func (s *Session) Snapshot() chess.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// LastActivity is the time of the most recent Do call.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Store manages hosted games.
type Store struct {
	sessions map[string]*Session // map game ID to session
	mu       sync.RWMutex

	maxGames int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a store holding at most maxGames games. Games idle for
// longer than idleTTL are removed by Sweep; a zero TTL keeps them forever.
func NewStore(maxGames int, idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		maxGames: maxGames,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create starts a game from the standard position, or from fen when it is
// non-empty.
func (s *Store) Create(fen string) (*Session, error) {
	engine := chess.NewEngine()
	if fen != "" {
		var err error
		if engine, err = chess.NewEngineFromFEN(fen); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxGames > 0 && len(s.sessions) >= s.maxGames {
		return nil, fmt.Errorf("%w: %d games", ErrStoreFull, len(s.sessions))
	}

	now := s.now()
	session := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		engine:       engine,
		lastActivity: now,
		now:          s.now,
	}
	s.sessions[session.ID] = session

	log.Info().
		Str("gameID", session.ID).
		Bool("fromFEN", fen != "").
		Int("games", len(s.sessions)).
		Msg("Game created")
	return session, nil
}

// Get retrieves a game by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return session, nil
}

// Reset puts the game back to the standard initial position.
func (s *Store) Reset(id string) (*Session, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	_ = session.Do(func(e *chess.Engine) error {
		e.Reset()
		return nil
	})
	log.Info().Str("gameID", id).Msg("Game reset")
	return session, nil
}

// Delete removes a game.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	delete(s.sessions, id)
	log.Info().Str("gameID", id).Msg("Game deleted")
	return nil
}

// List returns every hosted game, oldest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Len reports how many games are hosted.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes games idle past the TTL and returns their IDs.
func (s *Store) Sweep() []string {
	if s.idleTTL <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	var removed []string
	for id, session := range s.sessions {
		if session.LastActivity().Before(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		log.Info().Int("removed", len(removed)).Int("games", len(s.sessions)).Msg("Swept idle games")
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled. onSweep, if set, receives
// the IDs removed by each sweep.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); len(removed) > 0 && onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
