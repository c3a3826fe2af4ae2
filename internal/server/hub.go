package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 4096
	clientBuffer   = 16
	maxClients     = 100
)

// Commander is the subset of the playback controller driven by clients.
type Commander interface {
	Toggle() bool
	Advance() playback.Frame
	Seek(step int) playback.Frame
	Frame() playback.Frame
}

// ConnTracker observes WebSocket client lifetimes.
type ConnTracker interface {
	ClientConnected()
	ClientDisconnected()
}

// Message is the envelope for every server-to-client WebSocket message.
type Message struct {
	Type  string          `json:"type"`
	Frame *playback.Frame `json:"frame,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Command is a client-to-server control message.
type Command struct {
	Action string `json:"action"`
	Step   *int   `json:"step,omitempty"`
}

// Hub fans playback frames out to WebSocket clients and applies their
// commands to the controller. It is a playback.Sink.
type Hub struct {
	ctl      Commander
	log      logging.Logger
	tracker  ConnTracker
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	limit   int
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewHub returns a hub driving ctl. tracker may be nil.
func NewHub(ctl Commander, log logging.Logger, tracker ConnTracker) *Hub {
	return &Hub{
		ctl:     ctl,
		log:     logging.OrNoop(log),
		tracker: tracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
		limit:   maxClients,
	}
}

// Render queues frame for every connected client. A client whose buffer is
// full misses the frame; Render never blocks the controller.
func (h *Hub) Render(frame playback.Frame) {
	data, err := json.Marshal(Message{Type: "frame", Frame: &frame})
	if err != nil {
		h.log.Error(context.Background(), "encode frame", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug(context.Background(), "dropping frame for slow websocket client",
				logging.Int("step", frame.Step),
			)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.stop()
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	refuse := h.closed || len(h.clients) >= h.limit
	h.mu.Unlock()
	if refuse {
		http.Error(w, "websocket unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		// Lost a race for the last slot after the upgrade.
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "websocket unavailable")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.unregister(c)

	h.log.Info(ctx, "websocket client connected", logging.String("remote", r.RemoteAddr))
	frame := h.ctl.Frame()
	h.reply(c, Message{Type: "frame", Frame: &frame})

	go h.writePump(ctx, c)
	h.readPump(ctx, c)
	h.log.Info(ctx, "websocket client disconnected", logging.String("remote", r.RemoteAddr))
}

// register admits c unless the hub is closed or at its client limit.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed || len(h.clients) >= h.limit {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.tracker != nil {
		h.tracker.ClientConnected()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()

	if h.tracker != nil {
		h.tracker.ClientDisconnected()
	}
}

// reply queues msg for one client only.
func (h *Hub) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.reply(c, Message{Type: "error", Error: "malformed command"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn(ctx, "websocket read failed", logging.Err(err))
			}
			return
		}
		if err := h.apply(cmd); err != nil {
			h.reply(c, Message{Type: "error", Error: err.Error()})
		}
	}
}

// apply runs one client command. Resulting frames reach every client via
// Render, including the sender.
func (h *Hub) apply(cmd Command) error {
	switch cmd.Action {
	case "toggle":
		h.ctl.Toggle()
	case "advance":
		h.ctl.Advance()
	case "seek":
		if cmd.Step == nil {
			return errors.New("seek requires a step")
		}
		h.ctl.Seek(*cmd.Step)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug(ctx, "websocket write failed", logging.Err(err))
				c.stop()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
