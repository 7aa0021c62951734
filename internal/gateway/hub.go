// Package gateway exposes a session to browser charts over websocket and
// a small JSON REST surface.
package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/replaysim/internal/metrics"
	"github.com/rustyeddy/replaysim/session"
)

// Envelope is every message the server sends.
type Envelope struct {
	Type    string `json:"type"`
	Client  string `json:"client,omitempty"`
	Command string `json:"command,omitempty"`
	OK      bool   `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Message types.
const (
	TypeHello  = "hello"
	TypeReply  = "reply"
	TypeEvent  = "event"
	TypeUpdate = "update"
)

// Hub fans session events out to every connected client.
type Hub struct {
	sess    *session.Session
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool

	unsubscribe func()
}

func NewHub(sess *session.Session, m *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		sess:    sess,
		metrics: m,
		log:     log,
		clients: make(map[*Client]bool),
	}
	h.unsubscribe = sess.Subscribe(h.onEvent)
	return h
}

// Update is pushed whenever the visible window moves.
type Update struct {
	Status  session.Status `json:"status"`
	Bar     any            `json:"bar,omitempty"`
	Account any            `json:"account"`
	Market  any            `json:"market"`
}

func (h *Hub) onEvent(ev session.Event) {
	if ev.Kind == session.WindowUpdated {
		u := Update{
			Status:  h.sess.Status(),
			Account: h.sess.Account(),
			Market:  h.sess.Market(),
		}
		if w := h.sess.Window(); len(w) > 0 {
			u.Bar = w[len(w)-1]
		}
		h.broadcast(Envelope{Type: TypeUpdate, Data: u})
		return
	}
	h.broadcast(Envelope{Type: TypeEvent, Data: ev})
}

func (h *Hub) broadcast(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Error("marshal broadcast", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("client send buffer full, dropping", "client", c.id)
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) *Client {
	c := newClient(h, conn)

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.ClientConnected()
	h.log.Info("ws client connected", "client", c.id, "clients", count)

	c.reply(Envelope{Type: TypeHello, Client: c.id, Data: h.sess.Status()})
	go c.writePump()
	go c.readPump()
	return c
}

// RemoveClient drops c and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	h.metrics.ClientDisconnected()
	h.log.Info("ws client disconnected", "client", c.id)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches from the session and disconnects every client.
func (h *Hub) Close() {
	h.unsubscribe()

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.RemoveClient(c)
	}
}
