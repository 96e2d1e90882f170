package notify

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub fans ledger events out to the shop's connected dashboards. Events
// for a shop with no connected clients are dropped; the hub is a
// best-effort surface, not a delivery queue.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	shopID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, shopID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		shopID: strconv.FormatInt(shopID, 10),
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.shopID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.shopID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.shopID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.shopID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Notify implements Notifier. It never blocks: when the broadcast buffer
// is full the event is dropped and logged.
func (h *Hub) Notify(_ context.Context, event Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("notify hub: dropping %s event for shop %d", event.Kind, event.ShopID)
	}
}

func (h *Hub) deliver(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify hub encode event: %v", err)
		return
	}

	shopID := strconv.FormatInt(event.ShopID, 10)
	set, ok := h.clients[shopID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- encoded:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, shopID)
	}
}

// ReadPump drains inbound frames until the peer disconnects. Dashboards
// only listen; anything they send is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
