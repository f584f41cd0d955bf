package web

import (
	"net/http"
	"time"

	"github.com/justinabrahms/chessrules/internal/chess"
)

// GameIndex represents a game available for spectating
type GameIndex struct {
	GameID         string              `json:"gameId"`
	Status         chess.GameStatus    `json:"status"`
	SideToMove     chess.Color         `json:"sideToMove"`
	Check          bool                `json:"check"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastActivityAt time.Time           `json:"lastActivityAt"`
	SpectatorCount int                 `json:"spectatorCount"`
	MaterialCount  chess.MaterialCount `json:"materialCount"`
}

// GetActiveGamesHandler lists hosted games, oldest first. ?status=active (or
// any other GameStatus) filters the list.
func (s *Service) GetActiveGamesHandler(w http.ResponseWriter, r *http.Request) {
	filter := chess.GameStatus(r.URL.Query().Get("status"))

	games := []GameIndex{}
	for _, session := range s.store.List() {
		snap := session.Snapshot()
		if filter != "" && snap.Status != filter {
			continue
		}
		games = append(games, GameIndex{
			GameID:         session.ID,
			Status:         snap.Status,
			SideToMove:     snap.State.SideToMove,
			Check:          snap.Check,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivity(),
			SpectatorCount: s.hub.ClientCount(session.ID),
			MaterialCount:  snap.Material,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"total": len(games),
	})
}
