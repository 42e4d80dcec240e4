package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsHub fans bridge events out to connected websocket clients. Slow or
// broken clients are dropped rather than allowed to stall the event
// path.
type wsHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

func newWSHub(logger *slog.Logger) *wsHub {
	return &wsHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// LAN utility, same trust model as the rest of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the peer goes away.
func (h *wsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "client", id)

	// Reads are discarded; the socket is publish-only. The read loop
	// exists to notice the peer closing.
	go func() {
		defer h.drop(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *wsHub) drop(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
		h.logger.Info("websocket client disconnected", "client", id)
	}
}

// Broadcast sends one event to every connected client.
func (h *wsHub) Broadcast(rec EventRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}

	h.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(h.clients))
	for id, c := range h.clients {
		conns[id] = c
	}
	h.mu.Unlock()

	for id, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(id)
		}
	}
}

// Close disconnects every client.
func (h *wsHub) Close() {
	h.mu.Lock()
	conns := h.clients
	h.clients = make(map[string]*websocket.Conn)
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
