package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans generation-run events out to every socket watching a run. A run
// can have any number of watchers, including zero; broadcasts to an
// unwatched run are dropped.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Connection]struct{} // run_id -> connections
	logger   zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		watchers: make(map[string]map[*Connection]struct{}),
		logger:   logger,
	}
}

// Watch subscribes a connection to a run's events.
func (h *Hub) Watch(runID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.watchers[runID]
	if set == nil {
		set = make(map[*Connection]struct{})
		h.watchers[runID] = set
	}
	set[conn] = struct{}{}
	h.logger.Info().Str("run_id", runID).Int("watchers", len(set)).Msg("watcher attached")
}

// Unwatch detaches a connection and closes it.
func (h *Hub) Unwatch(runID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.watchers[runID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.watchers, runID)
		}
	}
	conn.Close()
}

// Broadcast sends a message to every watcher of a run. Slow watchers whose
// queues are full miss the message rather than stall the run.
func (h *Hub) Broadcast(runID string, msg Message) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.watchers[runID]))
	for c := range h.watchers[runID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			h.logger.Warn().Err(err).Str("run_id", runID).Msg("watcher send failed")
		}
	}
}

// CloseRun disconnects every watcher of a finished run.
func (h *Hub) CloseRun(runID string) {
	h.mu.Lock()
	set := h.watchers[runID]
	delete(h.watchers, runID)
	h.mu.Unlock()

	for c := range set {
		c.Close()
	}
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 64),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends messages from the send queue.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump drains incoming frames. Watchers only ever send pings; anything
// else is answered with an error frame and ignored.
func (c *Connection) ReadPump() {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msg.Type {
		case TypePing:
			c.Send(Message{Type: TypePong, RequestID: msg.RequestID})
		default:
			c.Send(Message{Type: TypeError, RequestID: msg.RequestID})
		}
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
