package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ligustah/impfwidget/internal/feed"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one websocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump delivers queued messages and keeps the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages until the connection fails.
func (c *client) readPump(h *hub) {
	defer h.leave(c)

	c.conn.SetReadLimit(4096)
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

// hub fans snapshot updates out to subscribers. run must be active for
// join and broadcast to make progress.
type hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	logger     *slog.Logger

	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// run serves the hub until ctx is cancelled. It must be called at most once.
func (h *hub) run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.doneOnce.Do(func() { close(h.done) })
		for c := range h.clients {
			c.close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("stream client connected", slog.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				h.logger.Debug("stream client disconnected", slog.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow subscriber.
					delete(h.clients, c)
					c.close()
				}
			}
		}
	}
}

func (h *hub) join(ctx context.Context, c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-time.After(writeWait):
	}
}

func (h *hub) publish(ctx context.Context, msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	case <-ctx.Done():
	}
}

func encodeResult(res feed.Result) []byte {
	data, _ := json.Marshal(toResponse(res))
	return data
}

// handleStream upgrades to a websocket, sends the current snapshot and then
// every refreshed one. It answers 503 unless Run is active.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.hub.running.Load() {
		writeError(w, http.StatusServiceUnavailable, "stream not running")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	c.send <- encodeResult(s.opts.Source.Load(r.Context()))

	if !s.hub.join(r.Context(), c) {
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump(s.hub)
}

// refresh reloads the source on every interval and publishes the result.
func (s *Server) refresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.publish(ctx, encodeResult(s.opts.Source.Load(ctx)))
		}
	}
}
