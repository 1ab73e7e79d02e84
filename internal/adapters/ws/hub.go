// Package ws pushes group events to connected clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Tominouu/covoit/internal/domain"
	"github.com/Tominouu/covoit/internal/ports/out/events"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; origin policy belongs to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients for every group event.
type Message struct {
	Event   string         `json:"event"`
	GroupID string         `json:"groupId"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Hub manages WebSocket clients grouped by the carpool group they watch and
// fans application events out to the matching room. It implements
// events.Publisher so the services stay unaware of the transport.
type Hub struct {
	mu    sync.RWMutex
	rooms map[domain.GroupID]map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[domain.GroupID]map[*client]struct{})}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish fans the event out to every client watching the group. Delivery is
// best effort: a client whose buffer is full gets disconnected rather than
// blocking the publisher.
//
// Sends happen under the read lock while close(c.send) only happens under the
// write lock (unregister, closeAll), so a send can never race a close. The
// sends are non-blocking selects, so holding the lock is cheap.
func (h *Hub) Publish(_ context.Context, e events.Event) {
	data, err := json.Marshal(Message{
		Event:   e.Type,
		GroupID: string(e.GroupID),
		Payload: e.Payload,
		At:      e.At,
	})
	if err != nil {
		return
	}

	var stalled []*client
	h.mu.RLock()
	for c := range h.rooms[e.GroupID] {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.unregister(e.GroupID, c)
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The caller is expected to have authorized the request against the group
// before delegating here. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(chi.URLParam(r, "groupId"))
	if groupID == "" {
		http.Error(w, "missing group id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(groupID, c)
	defer h.unregister(groupID, c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of clients watching the group.
func (h *Hub) Count(groupID domain.GroupID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

func (h *Hub) register(groupID domain.GroupID, c *client) {
	h.mu.Lock()
	room, ok := h.rooms[groupID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[groupID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(groupID domain.GroupID, c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[groupID]; ok {
		if _, ok := room[c]; ok {
			delete(room, c)
			close(c.send)
		}
		if len(room) == 0 {
			delete(h.rooms, groupID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for groupID, room := range h.rooms {
		for c := range room {
			close(c.send)
			delete(room, c)
		}
		delete(h.rooms, groupID)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
