package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
)

const (
	// clientQueueSize bounds the per-client send backlog. A client
	// that falls this far behind is disconnected.
	clientQueueSize = 32

	writeTimeout = 5 * time.Second
)

// Feed broadcasts fleet events to WebSocket subscribers. It implements
// fleet.EventSink and http.Handler.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewFeed creates an event feed ready to accept subscribers.
func NewFeed(logger *slog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the feed closes.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientQueueSize),
		done: make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	f.logger.Info("ops feed client connected", "remote", r.RemoteAddr)

	go f.writeLoop(c)
	f.readLoop(c)

	f.remove(c)
	f.logger.Info("ops feed client disconnected", "remote", r.RemoteAddr)
}

// readLoop consumes and discards inbound frames so control messages
// (close, ping) are processed. It returns when the connection dies.
func (f *Feed) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writeLoop(c *client) {
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeTimeout))
			_ = c.conn.Close()
			return
		}
	}
}

// Publish fans the event out to all subscribers. A subscriber whose
// queue is full is dropped.
func (f *Feed) Publish(_ context.Context, ev fleet.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapInvalid(err, "Feed", "Publish", "marshal event")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			f.logger.Warn("Dropping slow ops feed client")
			delete(f.clients, c)
			close(c.done)
		}
	}
	return nil
}

// Len reports the number of connected subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects all subscribers and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		close(c.done)
	}
}

func (f *Feed) remove(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.done)
	}
}
