// Package hud serves the websocket feed that pushes law state to player HUDs.
package hud

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cory-johannsen/enforcer/internal/gameserver"
)

// Path is the websocket endpoint.
const Path = "/hud"

const writeTimeout = 5 * time.Second

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub keeps one websocket per player and forwards law state frames to it.
//
// Hub implements gameserver.StateSender.
type Hub struct {
	logger    *zap.Logger
	onConnect func(uuid.UUID)
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewHub creates a Hub. onConnect, when non-nil, runs after a player's socket
// is registered so the caller can push the current state.
func NewHub(logger *zap.Logger, onConnect func(uuid.UUID)) *Hub {
	return &Hub{
		logger:    logger,
		onConnect: onConnect,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*client),
	}
}

// Handler returns a mux serving the HUD endpoint and a health check.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeHTTP upgrades /hud?player=<uuid>. A second socket for the same player
// replaces the first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(r.URL.Query().Get("player"))
	if err != nil {
		http.Error(w, "player query parameter must be a uuid", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("hud upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	prev := h.clients[uid]
	h.clients[uid] = c
	n := len(h.clients)
	h.mu.Unlock()
	if prev != nil {
		_ = prev.conn.Close()
	}
	h.logger.Info("hud connected", zap.Stringer("player", uid), zap.Int("clients", n))

	if h.onConnect != nil {
		h.onConnect(uid)
	}

	// Drain until the peer goes away; clients send nothing meaningful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(uid, c)
	h.logger.Info("hud disconnected", zap.Stringer("player", uid))
}

// SendLawState implements gameserver.StateSender. Players without a socket
// are skipped silently; a failed write drops the socket.
func (h *Hub) SendLawState(p gameserver.LawStatePayload) error {
	h.mu.Lock()
	c := h.clients[p.Player]
	h.mu.Unlock()
	if c == nil {
		return nil
	}
	data, err := protojson.Marshal(p.Struct())
	if err != nil {
		return fmt.Errorf("encoding hud frame: %w", err)
	}
	if err := c.write(data); err != nil {
		h.drop(p.Player, c)
		return fmt.Errorf("hud write to %s: %w", p.Player, err)
	}
	return nil
}

// Connected reports whether uid has a live socket.
func (h *Hub) Connected(uid uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[uid]
	return ok
}

// Count returns the number of live sockets.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every socket.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	var errs []error
	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// drop removes c if it is still uid's socket.
func (h *Hub) drop(uid uuid.UUID, c *client) {
	h.mu.Lock()
	if h.clients[uid] == c {
		delete(h.clients, uid)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}
