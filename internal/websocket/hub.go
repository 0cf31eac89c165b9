package websocket

import (
	"encoding/json"
	"sync"
	"time"
)

// BalanceUpdate is pushed to every connection of a bank's owner after a
// committed balance change.
type BalanceUpdate struct {
	BankID  string    `json:"bank_id"`
	Balance string    `json:"balance"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

const (
	ReasonDeposit   = "deposit"
	ReasonPurchase  = "purchase"
	ReasonRefund    = "refund"
	ReasonAllowance = "allowance"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastBalance never blocks; a client whose buffer is full misses the
// update and catches up on the next one.
func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	if update.At.IsZero() {
		update.At = time.Now().UTC()
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
