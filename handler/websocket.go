package handler

import (
	"context"
	"encoding/json"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"
)

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub pushes the derived table list and notifications to every connected dashboard.
// Publishing never blocks: when the outbox is full the message is dropped, and the next
// table update carries the full state anyway.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  []byte
	outbox  chan []byte
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		outbox:  make(chan []byte, 64),
		log:     log.WithField("component", "hub"),
	}
}

func (h *Hub) PublishTables(views []model.TableView) {
	raw, err := json.Marshal(wsMessage{Type: "tables", Data: views})
	if err != nil {
		h.log.WithError(err).Error("encode tables")
		return
	}
	h.mu.Lock()
	h.latest = raw
	h.mu.Unlock()
	h.enqueue(raw)
}

func (h *Hub) Notify(n notify.Notification) {
	raw, err := json.Marshal(wsMessage{Type: "notification", Data: n})
	if err != nil {
		return
	}
	h.enqueue(raw)
}

func (h *Hub) enqueue(raw []byte) {
	select {
	case h.outbox <- raw:
	default:
		h.log.Warn("websocket outbox full, message dropped")
	}
}

// Run delivers queued messages until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		case raw := <-h.outbox:
			h.broadcast(raw)
		}
	}
}

func (h *Hub) broadcast(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// TablesWebsocket sends the current table list on connect, then every change.
func (h *Hub) TablesWebsocket(c *websocket.Conn) {
	h.mu.Lock()
	if h.latest != nil {
		if err := c.WriteMessage(websocket.TextMessage, h.latest); err != nil {
			h.mu.Unlock()
			c.Close()
			return
		}
	}
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
	}()

	// Clients only listen. Reading detects the disconnect.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
