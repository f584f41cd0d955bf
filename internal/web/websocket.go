package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/justinabrahms/chessrules/internal/chess"
	"github.com/justinabrahms/chessrules/internal/config"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

var errHubStopped = errors.New("websocket hub stopped")

// Update types sent to websocket clients.
const (
	UpdateSnapshot = "snapshot"
	UpdateMove     = "move"
	UpdateGameEnd  = "game_end"
	UpdateReset    = "reset"
	UpdateDeleted  = "deleted"
)

// GameUpdate represents an update to broadcast
type GameUpdate struct {
	GameID string      `json:"gameId"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data,omitempty"`
}

// outbound is one update for a game's watchers. When closeGame is set the
// hub disconnects every watcher after delivering it.
type outbound struct {
	update    GameUpdate
	closeGame bool
}

// Hub maintains active WebSocket connections
type Hub struct {
	// Registered clients by game ID
	gameClients map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	pongWait   time.Duration

	mu sync.RWMutex
}

// Client represents a WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// NewHub creates a new WebSocket hub
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		gameClients: make(map[string]map[*Client]bool),
		broadcast:   make(chan outbound, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// Spectating is public.
				return true
			},
		},
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait(),
	}
}

// Run starts the hub's main event loop. It returns when ctx is cancelled,
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for gameID, clients := range h.gameClients {
				for client := range clients {
					close(client.send)
				}
				delete(h.gameClients, gameID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.gameClients[client.gameID] == nil {
				h.gameClients[client.gameID] = make(map[*Client]bool)
			}
			h.gameClients[client.gameID][client] = true
			h.mu.Unlock()

			log.Info().
				Str("gameID", client.gameID).
				Str("remote", client.conn.RemoteAddr().String()).
				Msg("Client connected to game")

		case client := <-h.unregister:
			if h.remove(client) {
				log.Info().
					Str("gameID", client.gameID).
					Msg("Client disconnected from game")
			}

		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

func (h *Hub) deliver(out outbound) {
	update := out.update
	message, err := json.Marshal(update)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal game update")
		return
	}

	h.mu.RLock()
	var drop []*Client
	for client := range h.gameClients[update.GameID] {
		select {
		case client.send <- message:
			if out.closeGame {
				drop = append(drop, client)
			}
		default:
			// Client's send channel is full, drop it
			log.Warn().Str("gameID", client.gameID).Msg("Dropped slow websocket client")
			drop = append(drop, client)
		}
	}
	h.mu.RUnlock()

	// Closing send makes writePump flush the queue and send a close frame.
	for _, client := range drop {
		h.remove(client)
	}
	if out.closeGame && len(drop) > 0 {
		log.Info().Str("gameID", update.GameID).Int("clients", len(drop)).Msg("Closed watchers of removed game")
	}
}

// remove unregisters client and closes its send channel. It reports whether
// the client was still registered.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.gameClients[client.gameID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty game rooms
	if len(clients) == 0 {
		delete(h.gameClients, client.gameID)
	}
	return true
}

// BroadcastGameUpdate sends an update to all clients watching a game
func (h *Hub) BroadcastGameUpdate(update GameUpdate) {
	select {
	case h.broadcast <- outbound{update: update}:
	default:
		log.Warn().Str("gameID", update.GameID).Str("type", update.Type).Msg("Broadcast channel full, dropping update")
	}
}

// CloseGame tells the watchers of gameID that the game is gone and then
// disconnects them. Unlike BroadcastGameUpdate it waits for room on the
// broadcast queue, so no watcher is left behind.
func (h *Hub) CloseGame(gameID string) {
	select {
	case h.broadcast <- outbound{update: GameUpdate{GameID: gameID, Type: UpdateDeleted}, closeGame: true}:
	case <-h.done:
	}
}

// ClientCount reports how many clients watch gameID.
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.gameClients[gameID])
}

// WebSocketHandler streams updates for one game. The first message is a
// snapshot of the game.
func (s *Service) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	session, err := s.store.Get(gameID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
	}

	// Moves broadcast under the game lock, so snapshotting and registering
	// under it too means every later move reaches this client after the
	// snapshot.
	err = session.Do(func(e *chess.Engine) error {
		initial, err := json.Marshal(GameUpdate{GameID: gameID, Type: UpdateSnapshot, Data: e.Snapshot()})
		if err != nil {
			return err
		}
		client.send <- initial

		select {
		case client.hub.register <- client:
			return nil
		case <-client.hub.done:
			return errHubStopped
		}
	})
	if err != nil {
		log.Error().Err(err).Str("gameID", gameID).Msg("Failed to start websocket feed")
		conn.Close()
		return
	}

	// The game may have been deleted between the lookup and the register.
	if _, err := s.store.Get(gameID); err != nil {
		select {
		case client.hub.unregister <- client:
		case <-client.hub.done:
		}
	}

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming messages from the WebSocket
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("gameID", c.gameID).Msg("WebSocket error")
			}
			break
		}

		// Application-level keepalive for clients that cannot send ping frames
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err == nil && msg.Type == "ping" {
			if data, err := json.Marshal(map[string]string{"type": "pong"}); err == nil {
				c.trySend(data)
			}
		}
	}
}

// trySend queues data unless the hub already closed the client.
func (c *Client) trySend(data []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.gameClients[c.gameID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump handles sending messages to the WebSocket
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
