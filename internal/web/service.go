package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/justinabrahms/chessrules/internal/auth"
	"github.com/justinabrahms/chessrules/internal/chess"
	"github.com/justinabrahms/chessrules/internal/game"
	"github.com/rs/zerolog/log"
)

var (
	errBadRequest   = errors.New("bad request")
	errMissingToken = errors.New("missing bearer token")
)

type Service struct {
	store *game.Store
	seats *auth.Issuer
	hub   *Hub
}

func NewService(store *game.Store, seats *auth.Issuer, hub *Hub) *Service {
	return &Service{
		store: store,
		seats: seats,
		hub:   hub,
	}
}

// Router wires the API routes behind the CORS middleware.
func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods("GET")
	api.HandleFunc("/games", s.GetActiveGamesHandler).Methods("GET")
	api.HandleFunc("/games", s.CreateGameHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/games/{id}", s.GetGameHandler).Methods("GET")
	api.HandleFunc("/games/{id}", s.DeleteGameHandler).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/games/{id}/legal", s.LegalMovesHandler).Methods("GET")
	api.HandleFunc("/games/{id}/moves", s.MakeMoveHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/games/{id}/promotion", s.PromotionHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/games/{id}/reset", s.ResetGameHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/games/{id}/ws", s.WebSocketHandler).Methods("GET")
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"games":  s.store.Len(),
	})
}

type CreateGameRequest struct {
	FEN string `json:"fen,omitempty"`
}

// SeatTokens holds one bearer token per colour.
type SeatTokens struct {
	White string `json:"white"`
	Black string `json:"black"`
}

type CreateGameResponse struct {
	GameID string         `json:"gameId"`
	Tokens SeatTokens     `json:"tokens"`
	Game   chess.Snapshot `json:"game"`
}

func (s *Service) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}

	session, err := s.store.Create(req.FEN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create game")
		writeError(w, err)
		return
	}

	resp := CreateGameResponse{GameID: session.ID, Game: session.Snapshot()}
	if resp.Tokens.White, err = s.seats.Issue(session.ID, chess.White); err == nil {
		resp.Tokens.Black, err = s.seats.Issue(session.ID, chess.Black)
	}
	if err != nil {
		log.Error().Err(err).Str("gameID", session.ID).Msg("Failed to issue seat tokens")
		_ = s.store.Delete(session.ID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// LegalMovesResponse lists destinations for one square, or every legal move
// of the side to move when no square was asked for.
type LegalMovesResponse struct {
	From  string   `json:"from,omitempty"`
	Moves []string `json:"moves"`
}

func (s *Service) LegalMovesHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	from := r.URL.Query().Get("from")
	resp := LegalMovesResponse{From: from, Moves: []string{}}
	if from == "" {
		_ = session.Do(func(e *chess.Engine) error {
			for _, m := range e.AllLegalMoves() {
				resp.Moves = append(resp.Moves, m.String())
			}
			return nil
		})
		writeJSON(w, http.StatusOK, resp)
		return
	}

	sq, err := chess.ParseSquare(from)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	_ = session.Do(func(e *chess.Engine) error {
		for _, to := range e.LegalMoves(sq) {
			resp.Moves = append(resp.Moves, to.String())
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

type MakeMoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type MoveResponse struct {
	Outcome chess.MoveOutcome `json:"outcome"`
	Game    chess.Snapshot    `json:"game"`
}

// MakeMoveHandler submits a move for the side to move. A promotion piece in
// the request resolves a promotion in the same call; without one the game
// waits for PromotionHandler. A promotion piece on a move that does not
// promote is rejected.
func (s *Service) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}
	from, err := chess.ParseSquare(req.From)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	to, err := chess.ParseSquare(req.To)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	promotion := chess.ParsePromotion(req.Promotion)
	if req.Promotion != "" && promotion == chess.NoKind {
		writeError(w, fmt.Errorf("%w: %q", chess.ErrInvalidPromotion, req.Promotion))
		return
	}

	s.play(w, r, gameID, func(e *chess.Engine) (chess.MoveOutcome, error) {
		if promotion != chess.NoKind && !promotes(e, from, to) {
			return chess.MoveOutcome{}, fmt.Errorf("%w: %s to %s does not promote", chess.ErrInvalidPromotion, from, to)
		}
		out, err := e.SubmitMove(from, to)
		if err != nil || out.Kind != chess.OutcomePromotionPending || promotion == chess.NoKind {
			return out, err
		}
		return e.ResolvePromotion(promotion)
	})
}

// promotes reports whether from->to takes a pawn to its last rank. Legality
// is left to SubmitMove.
func promotes(e *chess.Engine, from, to chess.Square) bool {
	board := e.Board()
	pc, ok := board.Get(from)
	return ok && pc.Kind == chess.Pawn && (to.Row == 0 || to.Row == 7)
}

type PromotionRequest struct {
	Piece string `json:"piece"`
}

func (s *Service) PromotionHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req PromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}
	kind := chess.ParsePromotion(req.Piece)

	s.play(w, r, gameID, func(e *chess.Engine) (chess.MoveOutcome, error) {
		return e.ResolvePromotion(kind)
	})
}

// play authorises the caller for the side to move and runs fn under the game
// lock. The result is published before the lock is released so watchers see
// moves in the order they were played.
func (s *Service) play(w http.ResponseWriter, r *http.Request, gameID string, fn func(*chess.Engine) (chess.MoveOutcome, error)) {
	session, err := s.store.Get(gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var resp MoveResponse
	err = session.Do(func(e *chess.Engine) error {
		if err := s.seats.Authorize(token, gameID, e.State().SideToMove); err != nil {
			return err
		}
		out, err := fn(e)
		if err != nil {
			return err
		}
		resp = MoveResponse{Outcome: out, Game: e.Snapshot()}

		s.hub.BroadcastGameUpdate(GameUpdate{GameID: gameID, Type: UpdateMove, Data: resp})
		if out.GameOver {
			s.hub.BroadcastGameUpdate(GameUpdate{GameID: gameID, Type: UpdateGameEnd, Data: resp.Game})
		}
		return nil
	})
	if err != nil {
		log.Info().Err(err).Str("gameID", gameID).Msg("Move rejected")
		writeError(w, err)
		return
	}

	out := resp.Outcome
	log.Info().
		Str("gameID", gameID).
		Str("move", out.Move.String()).
		Str("kind", string(out.Kind)).
		Bool("check", out.Check).
		Str("fen", resp.Game.FEN).
		Msg("Move executed successfully")
	if out.GameOver {
		log.Info().Str("gameID", gameID).Str("result", string(out.Result)).Msg("Game over")
	}

	writeJSON(w, http.StatusOK, resp)
}

// ResetGameHandler restarts a game. Either seat may reset.
func (s *Service) ResetGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	if err := s.authorizeAnySeat(r, gameID); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.store.Reset(gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	snap := session.Snapshot()
	s.hub.BroadcastGameUpdate(GameUpdate{GameID: gameID, Type: UpdateReset, Data: snap})
	writeJSON(w, http.StatusOK, snap)
}

// DeleteGameHandler ends hosting of a game. Either seat may delete.
func (s *Service) DeleteGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	if err := s.authorizeAnySeat(r, gameID); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.Delete(gameID); err != nil {
		writeError(w, err)
		return
	}
	s.hub.CloseGame(gameID)
	w.WriteHeader(http.StatusNoContent)
}

// NotifyExpired tells watchers that the store swept their games and
// disconnects them.
func (s *Service) NotifyExpired(gameIDs []string) {
	for _, id := range gameIDs {
		s.hub.CloseGame(id)
	}
}

func (s *Service) authorizeAnySeat(r *http.Request, gameID string) error {
	if _, err := s.store.Get(gameID); err != nil {
		return err
	}
	token, err := bearerToken(r)
	if err != nil {
		return err
	}
	claims, err := s.seats.Verify(token)
	if err != nil {
		return err
	}
	if claims.GameID != gameID {
		return fmt.Errorf("%w: token is for game %s", auth.ErrWrongSeat, claims.GameID)
	}
	return nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errMissingToken
	}
	return token, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrStoreFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, errMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrWrongSeat):
		return http.StatusForbidden
	// A pending promotion also wraps ErrIllegalMove; it is a client
	// sequencing error, not an illegal move.
	case errors.Is(err, chess.ErrPromotionPending):
		return http.StatusBadRequest
	case errors.Is(err, chess.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chess.ErrGameNotActive), errors.Is(err, chess.ErrNoPendingPromotion):
		return http.StatusConflict
	case errors.Is(err, chess.ErrInvalidPromotion),
		errors.Is(err, chess.ErrInvalidFEN),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
