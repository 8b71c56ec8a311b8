// order_websocket.go
package orderControllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/junaidrashid-git/eshop/models"
)

const (
	EventOrderPlaced  = "order_placed"
	EventOrderPaid    = "order_paid"
	EventOrderUpdated = "order_updated"

	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Event is one message on the staff order feed.
type Event struct {
	Type  string       `json:"type"`
	Order models.Order `json:"order"`
}

// Hub fans order events out to connected staff dashboards. A nil *Hub
// drops events.
type Hub struct {
	mu       sync.Mutex
	clients  map[*feedClient]bool
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// feedClient owns one dashboard connection. Only its writer goroutine
// writes to conn.
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*feedClient]bool),
		upgrader: websocket.Upgrader{
			// the route sits behind the admin API key
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// GET /admin/api/orders/ws
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.WithError(err).Warn("order feed upgrade failed")
			return
		}
		client := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}
		defer h.remove(client)

		h.mu.Lock()
		h.clients[client] = true
		h.mu.Unlock()

		go h.writeLoop(client)

		// staff clients only listen; reading detects the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) writeLoop(client *feedClient) {
	defer client.conn.Close()
	for data := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Debug("order feed write failed")
			h.remove(client)
			return
		}
	}
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove is safe to call more than once per client.
func (h *Hub) remove(client *feedClient) {
	h.mu.Lock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}

// Clients reports how many dashboards are connected.
func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues the event for every dashboard without waiting on the
// network. A dashboard whose queue is full is dropped.
func (h *Hub) Broadcast(eventType string, order models.Order) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Order: order})
	if err != nil {
		h.log.WithError(err).Error("order event encode failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.log.Warn("order feed client too slow, disconnecting")
			delete(h.clients, client)
			close(client.send)
		}
	}
}
