package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Hub fans frames out to the websocket clients subscribed to a topic.
// A client whose buffer is full misses the frame.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics []string
}

// NewHub creates a hub. allowedOrigin "*" or "" accepts any origin.
func NewHub(log logrus.FieldLogger, allowedOrigin string) *Hub {
	return &Hub{
		topics: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		log: log,
	}
}

// Publish encodes event and delivers it to local subscribers of topic.
func (h *Hub) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	h.Deliver(topic, payload)
	return nil
}

// Deliver hands payload to every subscriber of topic without blocking.
func (h *Hub) Deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		select {
		case c.send <- payload:
		default:
			h.log.WithField("topic", topic).Debug("dropping frame for slow client")
		}
	}
}

// Subscribers returns how many clients listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Serve upgrades the request and blocks until the connection ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topics []string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), topics: topics}
	h.register(c)

	go c.writePump()
	c.readPump()
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := map[*client]struct{}{}
	for _, clients := range h.topics {
		for c := range clients {
			conns[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	for c := range conns {
		c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*client]struct{})
		}
		h.topics[topic][c] = struct{}{}
	}
	h.log.WithField("topics", c.topics).Debug("websocket client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.topics {
		delete(h.topics[topic], c)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
	close(c.send)
	h.log.WithField("topics", c.topics).Debug("websocket client disconnected")
}

// readPump discards inbound frames; it exists to process pongs and detect close.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read failed")
			}
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
