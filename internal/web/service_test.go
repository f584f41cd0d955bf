package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/justinabrahms/chessrules/internal/auth"
	"github.com/justinabrahms/chessrules/internal/chess"
	"github.com/justinabrahms/chessrules/internal/config"
	"github.com/justinabrahms/chessrules/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *httptest.Server
	store *game.Store
	hub   *Hub
	svc   *Service
	ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.WebSocket.PingPeriod = time.Second
	return newTestEnvWithConfig(t, cfg)
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	store := game.NewStore(cfg.Games.MaxGames, cfg.Games.IdleTTL)
	seats, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	hub := NewHub(cfg.WebSocket)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	svc := NewService(store, seats, hub)
	srv := httptest.NewServer(svc.Router())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testEnv{srv: srv, store: store, hub: hub, svc: svc, ctx: ctx}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) createGame(t *testing.T, fen string) CreateGameResponse {
	t.Helper()
	status, data := e.do(t, "POST", "/api/games", "", CreateGameRequest{FEN: fen})
	require.Equal(t, http.StatusCreated, status, string(data))

	var created CreateGameResponse
	require.NoError(t, json.Unmarshal(data, &created))
	return created
}

// move posts "e2e4" style moves, with an optional promotion letter.
func (e *testEnv) move(t *testing.T, gameID, token, mv string) (int, MoveResponse) {
	t.Helper()
	req := MakeMoveRequest{From: mv[:2], To: mv[2:4]}
	if len(mv) == 5 {
		req.Promotion = mv[4:]
	}
	status, data := e.do(t, "POST", "/api/games/"+gameID+"/moves", token, req)

	var resp MoveResponse
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(data, &resp))
	}
	return status, resp
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createGame(t, "")

	status, data := env.do(t, "GET", "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["games"])
}

func TestCreateAndGetGame(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")

	assert.NotEmpty(t, created.GameID)
	assert.NotEmpty(t, created.Tokens.White)
	assert.NotEmpty(t, created.Tokens.Black)
	assert.NotEqual(t, created.Tokens.White, created.Tokens.Black)
	assert.Equal(t, chess.StartingFEN, created.Game.FEN)

	status, data := env.do(t, "GET", "/api/games/"+created.GameID, "", nil)
	require.Equal(t, http.StatusOK, status)

	var snap chess.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, chess.StartingFEN, snap.FEN)
	assert.Equal(t, chess.StatusActive, snap.Status)
	assert.Equal(t, chess.White, snap.State.SideToMove)
	assert.Len(t, snap.Pieces, 32)
}

func TestCreateGameWithoutBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.srv.URL+"/api/games", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateGameRejectsBadFEN(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, "POST", "/api/games", "", CreateGameRequest{FEN: "invalid-fen"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 0, env.store.Len())
}

func TestUnknownGame(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, "GET", "/api/games/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.move(t, "missing", "token", "e2e4")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFullGameOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")
	tokens := []string{created.Tokens.White, created.Tokens.Black}

	var last MoveResponse
	for i, mv := range []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"} {
		status, resp := env.move(t, created.GameID, tokens[i%2], mv)
		require.Equal(t, http.StatusOK, status, "move %s", mv)
		last = resp
	}

	assert.Equal(t, chess.OutcomeGameOver, last.Outcome.Kind)
	assert.True(t, last.Outcome.Checkmate)
	require.NotNil(t, last.Outcome.Winner)
	assert.Equal(t, chess.White, *last.Outcome.Winner)
	assert.Equal(t, chess.StatusWhiteWon, last.Game.Status)

	status, _ := env.move(t, created.GameID, created.Tokens.Black, "e8e7")
	assert.Equal(t, http.StatusConflict, status)
}

func TestMoveRequiresSeatToken(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")
	other := env.createGame(t, "")

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "garbage", http.StatusUnauthorized},
		{"opponent's seat", created.Tokens.Black, http.StatusForbidden},
		{"seat in another game", other.Tokens.White, http.StatusForbidden},
		{"own seat", created.Tokens.White, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.move(t, created.GameID, tt.token, "e2e4")
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestMoveRejections(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")
	white := created.Tokens.White

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"illegal move", MakeMoveRequest{From: "e2", To: "e5"}, http.StatusUnprocessableEntity},
		{"empty square", MakeMoveRequest{From: "e4", To: "e5"}, http.StatusUnprocessableEntity},
		{"bad square", MakeMoveRequest{From: "z9", To: "e4"}, http.StatusBadRequest},
		{"bad promotion letter", MakeMoveRequest{From: "e2", To: "e4", Promotion: "k"}, http.StatusBadRequest},
		{"promotion on a pawn push", MakeMoveRequest{From: "e2", To: "e4", Promotion: "q"}, http.StatusBadRequest},
		{"promotion on a knight move", MakeMoveRequest{From: "g1", To: "f3", Promotion: "n"}, http.StatusBadRequest},
		{"malformed body", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.do(t, "POST", "/api/games/"+created.GameID+"/moves", white, tt.body)
			assert.Equal(t, tt.status, status, string(data))

			var body errorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.NotEmpty(t, body.Error)
		})
	}

	// Nothing above changed the game.
	session, err := env.store.Get(created.GameID)
	require.NoError(t, err)
	assert.Equal(t, chess.StartingFEN, session.Snapshot().FEN)
}

func TestPromotionOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "8/P6k/8/8/8/8/8/K7 w - - 0 1")
	white := created.Tokens.White
	promotionPath := "/api/games/" + created.GameID + "/promotion"

	status, resp := env.move(t, created.GameID, white, "a7a8")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, chess.OutcomePromotionPending, resp.Outcome.Kind)
	require.NotNil(t, resp.Game.PendingPromotion)
	assert.Equal(t, "a7a8", resp.Game.PendingPromotion.String())

	status, _ = env.move(t, created.GameID, white, "a1b1")
	assert.Equal(t, http.StatusBadRequest, status, "moves wait for the promotion")

	status, _ = env.do(t, "POST", promotionPath, created.Tokens.Black, PromotionRequest{Piece: "q"})
	assert.Equal(t, http.StatusForbidden, status, "only the mover promotes")

	status, _ = env.do(t, "POST", promotionPath, white, PromotionRequest{Piece: "king"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data := env.do(t, "POST", promotionPath, white, PromotionRequest{Piece: "knight"})
	require.Equal(t, http.StatusOK, status, string(data))
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, chess.OutcomeApplied, resp.Outcome.Kind)
	assert.Equal(t, chess.Knight, resp.Outcome.Promotion)
	assert.Equal(t, "N7/7k/8/8/8/8/8/K7 b - - 0 1", resp.Game.FEN)

	status, _ = env.do(t, "POST", promotionPath, created.Tokens.Black, PromotionRequest{Piece: "q"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestInlinePromotion(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "7k/P7/6K1/8/8/8/8/8 w - - 0 1")

	status, resp := env.move(t, created.GameID, created.Tokens.White, "a7a8q")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, chess.OutcomeGameOver, resp.Outcome.Kind)
	assert.True(t, resp.Outcome.Checkmate)
	assert.Nil(t, resp.Game.PendingPromotion)
}

func TestLegalMovesHandler(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")
	base := "/api/games/" + created.GameID + "/legal"

	status, data := env.do(t, "GET", base+"?from=e2", "", nil)
	require.Equal(t, http.StatusOK, status)
	var legal LegalMovesResponse
	require.NoError(t, json.Unmarshal(data, &legal))
	assert.Equal(t, "e2", legal.From)
	assert.ElementsMatch(t, []string{"e3", "e4"}, legal.Moves)

	status, data = env.do(t, "GET", base+"?from=e7", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &legal))
	assert.Empty(t, legal.Moves, "black does not move first")

	status, data = env.do(t, "GET", base, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &legal))
	assert.Len(t, legal.Moves, 20)

	status, _ = env.do(t, "GET", base+"?from=j1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResetAndDeleteGame(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, "")
	path := "/api/games/" + created.GameID

	status, _ := env.move(t, created.GameID, created.Tokens.White, "e2e4")
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, "POST", path+"/reset", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, data := env.do(t, "POST", path+"/reset", created.Tokens.Black, nil)
	require.Equal(t, http.StatusOK, status)
	var snap chess.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, chess.StartingFEN, snap.FEN)

	status, _ = env.do(t, "DELETE", path, created.Tokens.White, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest("OPTIONS", env.srv.URL+"/api/games", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", game.ErrGameNotFound), http.StatusNotFound},
		{game.ErrStoreFull, http.StatusServiceUnavailable},
		{errMissingToken, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{auth.ErrWrongSeat, http.StatusForbidden},
		{&chess.MoveError{Err: chess.ErrIllegalMove}, http.StatusUnprocessableEntity},
		{&chess.MoveError{Err: chess.ErrPromotionPending}, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", chess.ErrPromotionPending, chess.ErrIllegalMove), http.StatusBadRequest},
		{chess.ErrInvalidPromotion, http.StatusBadRequest},
		{chess.ErrInvalidFEN, http.StatusBadRequest},
		{chess.ErrGameNotActive, http.StatusConflict},
		{chess.ErrNoPendingPromotion, http.StatusConflict},
		{chess.ErrInvariantViolation, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}
