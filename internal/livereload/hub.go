// Package livereload pushes reload notices to browsers viewing preview or
// development pages over a WebSocket.
package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/validation"
)

const (
	// TypeReload tells the browser to reload the page.
	TypeReload = "reload"

	sendBuffer   = 16
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Message is the JSON frame sent to browsers.
type Message struct {
	Type      string    `json:"type"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected browsers and fans reload messages out to them. A
// single goroutine owns registration and broadcast.
type Hub struct {
	clients map[*websocket.Conn]*client
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *client
	unregister chan *websocket.Conn

	allowedOrigins []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	closed       atomic.Bool
}

// NewHub starts a hub. Same-host origins are always accepted; other origins
// must appear in allowedOrigins.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:        make(map[*websocket.Conn]*client),
		broadcast:      make(chan []byte, 64),
		register:       make(chan *client, 16),
		unregister:     make(chan *websocket.Conn, 16),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("livereload"),
		ctx:            ctx,
		cancel:         cancel,
	}
	go h.run()
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if !h.originAllowed(r) {
		h.logger.Warn(r.Context(), nil, "WebSocket connection rejected",
			"origin", validation.SanitizeInput(r.Header.Get("Origin")))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was checked above.
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return validation.ValidateOrigin(origin, h.allowedOrigins) == nil
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.conn] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug(h.ctx, "Live reload client connected", "clients", n)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; it reloads on reconnect anyway.
					go h.drop(c.conn)
				}
			}
			h.mu.RUnlock()

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug(h.ctx, "Live reload client disconnected", "clients", n)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// readPump discards client frames and returns when the connection closes.
func (h *Hub) readPump(c *client) {
	defer h.drop(c.conn)
	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.drop(c.conn)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				h.drop(c.conn)
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// Reload asks every connected browser to reload. It never blocks; when the
// broadcast queue is full the notice is dropped.
func (h *Hub) Reload(reason string) {
	if h == nil || h.closed.Load() {
		return
	}
	data, err := json.Marshal(Message{Type: TypeReload, Reason: reason, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to encode reload message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(h.ctx, nil, "Reload queue full, dropping notice", "reason", reason)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops the hub.
func (h *Hub) Shutdown(context.Context) error {
	h.shutdownOnce.Do(func() {
		h.closed.Store(true)
		h.cancel()

		h.mu.Lock()
		for conn, c := range h.clients {
			close(c.send)
			_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
		h.clients = make(map[*websocket.Conn]*client)
		h.mu.Unlock()
	})
	return nil
}
