// Package ws streams DETM-gated telemetry to subscribed clients over
// websocket, implementing internal/telemetry.Sink so the core's gated
// transmissions can be pushed live without the core ever knowing
// websockets exist. Grounded on niceyeti-tabular's server.go (the only
// gorilla/websocket user in the retrieval pack): an Upgrader plus a
// per-connection write loop fed by a channel, generalized from pushing
// SVG cell deltas to pushing TelemetryDeltaEntry values.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
)

const (
	writeWait      = 1 * time.Second
	maxMessageSize = 8192
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out gated telemetry entries to every connected subscriber.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan telemetry.TelemetryDeltaEntry
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Publish implements telemetry.Sink: entry is pushed to every connected
// client's send channel; for a client whose channel is full the entry is
// dropped (and logged) rather than blocking the caller (the scheduler's
// tick loop). The client itself stays connected.
func (h *Hub) Publish(entry telemetry.TelemetryDeltaEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- entry:
		default:
			log.Printf("[ws] client send buffer full, dropping entry for drone %s", entry.Drone)
		}
	}
}

// ServeHTTP upgrades the connection and registers it with the hub until
// it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c := &client{conn: conn, send: make(chan telemetry.TelemetryDeltaEntry, 64)}
	h.register(c)
	defer h.unregister(c)

	go c.readPump()
	c.writePump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only exists to process control frames (ping/pong, close); the
// protocol is push-only so incoming data messages are discarded.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case entry, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
