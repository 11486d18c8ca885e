package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// ClientMessage is the wire shape of a message a WebSocket client sends to
// subscribe or unsubscribe from a topic, or to keep the connection alive.
type ClientMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// ConnectionManager bridges Bus topics to WebSocket clients: each connection
// can subscribe to any number of topics and receives every Envelope
// published on them until it unsubscribes or disconnects.
type ConnectionManager struct {
	bus *Bus

	mu          sync.RWMutex
	connections map[string]*connection

	writeTimeout time.Duration
}

type connection struct {
	id   string
	conn *websocket.Conn
	ctx  context.Context

	// unsubs is read/written only from the single goroutine running
	// HandleConnection for this connection (its read loop and deferred
	// cleanup), so it needs no lock of its own.
	unsubs map[string]func()
}

// NewConnectionManager constructs a manager delivering bus's events over
// WebSocket. writeTimeout bounds how long a single send to a client may
// block before it is treated as failed.
func NewConnectionManager(bus *Bus, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		bus:          bus,
		connections:  make(map[string]*connection),
		writeTimeout: writeTimeout,
	}
}

// HandleConnection manages one WebSocket connection's lifecycle from accept
// to close. Called by the API layer's upgrade handler; blocks until the
// connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	c := &connection{
		id:     uuid.New().String(),
		conn:   conn,
		ctx:    ctx,
		unsubs: make(map[string]func()),
	}

	m.register(c)
	defer m.unregister(c)

	m.sendJSON(c, map[string]string{"type": "connection.established", "connectionId": c.id})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid websocket message", "connection_id", c.id, "error", err)
			continue
		}
		m.handleClientMessage(c, &msg)
	}
}

func (m *ConnectionManager) handleClientMessage(c *connection, msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Topic == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "topic is required for subscribe"})
			return
		}
		m.subscribeTopic(c, msg.Topic)
		m.sendJSON(c, map[string]string{"type": "subscription.confirmed", "topic": msg.Topic})

	case "unsubscribe":
		if msg.Topic == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "topic is required for unsubscribe"})
			return
		}
		m.unsubscribeTopic(c, msg.Topic)
		m.sendJSON(c, map[string]string{"type": "subscription.removed", "topic": msg.Topic})

	case "ping":
		m.sendJSON(c, map[string]string{"type": "pong"})
	}
}

// subscribeTopic forks a goroutine that pumps bus events for topic onto the
// connection's socket until unsubscribed or the connection closes.
func (m *ConnectionManager) subscribeTopic(c *connection, topic string) {
	if _, already := c.unsubs[topic]; already {
		return
	}

	ch, unsubscribe := m.bus.Subscribe(topic)
	c.unsubs[topic] = unsubscribe

	go func() {
		for env := range ch {
			if err := m.sendJSON(c, envelopeMessage{Type: "event", Topic: env.Topic, Event: env.Event}); err != nil {
				return
			}
		}
	}()
}

func (m *ConnectionManager) unsubscribeTopic(c *connection, topic string) {
	unsubscribe, ok := c.unsubs[topic]
	if !ok {
		return
	}
	delete(c.unsubs, topic)
	unsubscribe()
}

type envelopeMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Event any    `json:"event"`
}

func (m *ConnectionManager) register(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.id] = c
}

func (m *ConnectionManager) unregister(c *connection) {
	for topic, unsubscribe := range c.unsubs {
		delete(c.unsubs, topic)
		unsubscribe()
	}

	m.mu.Lock()
	delete(m.connections, c.id)
	m.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// ActiveConnections reports how many WebSocket clients are currently
// connected. Used by diagnostics and health checks.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *ConnectionManager) sendJSON(c *connection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal websocket message", "connection_id", c.id, "error", err)
		return err
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("failed to write websocket message", "connection_id", c.id, "error", err)
		return err
	}
	return nil
}
