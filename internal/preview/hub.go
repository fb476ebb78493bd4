// Package preview serves live zoom state and export progress to local
// clients over HTTP and WebSocket, and advertises itself over mDNS.
package preview

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vedantwpatil/focusframe/internal/zoom"
)

const (
	sendBuffer = 32
	writeWait  = 2 * time.Second
)

// Message is one broadcast. Type is "zoom" or "progress".
type Message struct {
	Type     string  `json:"type"`
	Zoom     float64 `json:"zoom,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Phase    string  `json:"phase,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Done     bool    `json:"done,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type client struct {
	send chan []byte
}

// Hub fans messages out to WebSocket clients. Publish never blocks: a client
// that cannot keep up misses messages.
type Hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	lastZoom *Message
	dropped  int
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "preview"),
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Publish(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Debug("failed to encode preview message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if m.Type == "zoom" {
		h.lastZoom = &m
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
}

// ZoomSink adapts the hub to the zoom engine's update callback.
func (h *Hub) ZoomSink() func(zoom.Update) {
	return func(u zoom.Update) {
		h.Publish(Message{Type: "zoom", Zoom: u.Zoom, X: u.Center.X, Y: u.Center.Y, Phase: u.Phase.String()})
	}
}

// LastZoom returns the most recent zoom state, if any was published.
func (h *Hub) LastZoom() (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastZoom == nil {
		return Message{}, false
	}
	return *h.lastZoom, true
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts messages skipped for slow clients.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// serve pumps messages to conn until the peer goes away.
func (h *Hub) serve(conn *websocket.Conn) {
	c := h.register()
	defer h.unregister(c)
	defer conn.Close()
	h.logger.Debug("preview client connected", "remote", conn.RemoteAddr().String())

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last, ok := h.LastZoom(); ok {
		if err := h.write(conn, last); err != nil {
			return
		}
	}
	for {
		select {
		case <-gone:
			h.logger.Debug("preview client disconnected")
			return
		case data := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, m Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(m)
}
