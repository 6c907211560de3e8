// Package broadcast pushes dashboard snapshots to WebSocket viewers.
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only receive; anything they send is read and discarded.
	maxMessageSize = 512
)

// ErrClosed is returned by Broadcast after Close.
var ErrClosed = errors.New("broadcast hub closed")

// Config holds hub configuration.
type Config struct {
	MaxClients int // Maximum concurrent viewers (default: 1000)
	BufferSize int // Queued messages per viewer before it is dropped (default: 16)
}

// DefaultConfig returns default hub configuration.
func DefaultConfig() Config {
	return Config{
		MaxClients: 1000,
		BufferSize: 16,
	}
}

// Message is the envelope written to viewers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected viewers and fans messages out to them.
type Hub struct {
	cfg      Config
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	viewers *hyperloglog.Sketch
	latest  []byte
	closed  bool
}

// NewHub creates a hub. Zero config fields take their defaults.
func NewHub(cfg Config, logger logrus.FieldLogger) *Hub {
	def := DefaultConfig()
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Hub{
		cfg:    cfg,
		logger: logger.WithField("component", "broadcast"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		viewers: hyperloglog.New14(),
	}
}

// ServeHTTP upgrades the request and registers the viewer. The most recent
// message, if any, is queued immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= h.cfg.MaxClients
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if full {
		http.Error(w, "too many viewers", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.cfg.BufferSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.viewers.Insert([]byte(viewerID(r)))
	if h.latest != nil {
		c.send <- h.latest
	}
	h.mu.Unlock()

	h.report()
	h.logger.WithField("remote", r.RemoteAddr).Debug("Viewer connected")

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast sends a message to every viewer without blocking. Viewers whose
// queue is full are disconnected.
func (h *Hub) Broadcast(msgType string, data interface{}) error {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}

	var slow []*client

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	h.mu.Lock()
	h.latest = payload
	for _, c := range slow {
		h.removeLocked(c)
		observability.RecordBroadcastDropped()
	}
	h.mu.Unlock()

	if len(slow) > 0 {
		h.logger.WithField("dropped", len(slow)).Warn("Dropped slow viewers")
		h.report()
	}
	return nil
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UniqueViewers estimates distinct viewer addresses seen since start.
func (h *Hub) UniqueViewers() uint64 {
	// Estimate merges the sparse set into the registers, so it needs the write lock.
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewers.Estimate()
}

// Close disconnects every viewer and rejects further broadcasts.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	h.report()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()

	if removed {
		h.report()
		h.logger.Debug("Viewer disconnected")
	}
}

// removeLocked closes the viewer's queue; writePump then closes the socket.
func (h *Hub) removeLocked(c *client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	return true
}

func (h *Hub) report() {
	observability.UpdateViewers(h.ClientCount(), h.UniqueViewers())
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.unregister(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// viewerID identifies a viewer by its client address, honouring the first
// X-Forwarded-For hop when present.
func viewerID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
