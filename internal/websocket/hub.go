package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/pkg/logger"
)

// Order feed event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
)

// OrderEvent is pushed to every staff session of the order's business.
type OrderEvent struct {
	Type          string              `json:"type"`
	BusinessID    uint                `json:"business_id"`
	OrderNumber   string              `json:"order_number"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	CustomerName  string              `json:"customer_name"`
	At            time.Time           `json:"at"`
}

// Client is one staff websocket session bound to one business.
type Client struct {
	Hub        *Hub
	Conn       *Conn
	BusinessID uint
	UserID     uint
	Send       chan []byte
}

type broadcastMessage struct {
	businessID uint
	payload    []byte
}

// Hub fans order events out to the sessions of each business. Sessions
// only ever receive events of the business they connected under.
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan broadcastMessage, 1024),
	}
}

// Run serves the hub until ctx is done, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for businessID, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, businessID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.BusinessID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.BusinessID] = set
			}
			set[client] = struct{}{}
			sessions := len(set)
			h.mu.Unlock()

			logger.Info("WebSocket client registered", map[string]interface{}{
				"business_id": client.BusinessID,
				"user_id":     client.UserID,
				"sessions":    sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients[msg.businessID] {
				select {
				case client.Send <- msg.payload:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"business_id": client.BusinessID,
					"user_id":     client.UserID,
				})
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.BusinessID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.BusinessID)
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"business_id": client.BusinessID,
		"user_id":     client.UserID,
	})
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of live sessions for a business.
func (h *Hub) ClientCount(businessID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[businessID])
}

// PublishOrder queues an event for the order's business. It never blocks
// the caller: when the queue is full the event is dropped.
func (h *Hub) PublishOrder(eventType string, order *model.Order) {
	if h == nil || order == nil {
		return
	}

	payload, err := json.Marshal(OrderEvent{
		Type:          eventType,
		BusinessID:    order.BusinessID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		CustomerName:  order.CustomerName,
		At:            time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to encode order event", err, map[string]interface{}{
			"order_number": order.OrderNumber,
		})
		return
	}

	select {
	case h.broadcast <- broadcastMessage{businessID: order.BusinessID, payload: payload}:
	default:
		logger.Warn("Order event dropped, broadcast queue full", map[string]interface{}{
			"business_id":  order.BusinessID,
			"order_number": order.OrderNumber,
		})
	}
}
