package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingOrder tracks one order message awaiting its linked ack.
type PendingOrder struct {
	ClOrdID     string    `json:"cl_ord_id"`
	OrigClOrdID string    `json:"orig_cl_ord_id,omitempty"`
	MsgType     string    `json:"msg_type"`
	Symbol      string    `json:"symbol,omitempty"`
	SeqNum      int       `json:"seq_num"`
	Attempts    int       `json:"attempts"`
	SentAt      time.Time `json:"sent_at"`
	LastStatus  string    `json:"last_status,omitempty"`
	LastAckAt   time.Time `json:"last_ack_at,omitempty"`
}

// PendingOrders stores pending orders by ClOrdID.
type PendingOrders struct {
	mu    sync.RWMutex
	items map[string]PendingOrder
}

func NewPendingOrders() *PendingOrders {
	return &PendingOrders{
		items: make(map[string]PendingOrder),
	}
}

// Track records an order send; resending the same ClOrdID bumps Attempts.
func (o *PendingOrders) Track(item PendingOrder) {
	key := strings.TrimSpace(item.ClOrdID)
	if key == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.items[key]; ok {
		item.Attempts = prev.Attempts
	}
	item.Attempts++
	o.items[key] = item
}

// Ack records an execution report status and removes the order once it is
// terminal. The returned bool reports whether the order was pending.
func (o *PendingOrders) Ack(clOrdID, status string, at time.Time) (PendingOrder, bool) {
	key := strings.TrimSpace(clOrdID)
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[key]
	if !ok {
		return PendingOrder{}, false
	}
	item.LastStatus = strings.TrimSpace(status)
	item.LastAckAt = at
	if terminalStatus(item.LastStatus) {
		delete(o.items, key)
	} else {
		o.items[key] = item
	}
	return item, true
}

// terminalStatus reports OrdStatus values after which no further acks are
// expected for the ClOrdID: filled, canceled, replaced, rejected, expired.
func terminalStatus(status string) bool {
	switch status {
	case "2", "4", "5", "8", "C":
		return true
	}
	return false
}

func (o *PendingOrders) Remove(clOrdID string) {
	key := strings.TrimSpace(clOrdID)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, key)
}

func (o *PendingOrders) Get(clOrdID string) (PendingOrder, bool) {
	key := strings.TrimSpace(clOrdID)
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[key]
	return item, ok
}

func (o *PendingOrders) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// List returns pending orders in send order.
func (o *PendingOrders) List() []PendingOrder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingOrder, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeqNum != out[j].SeqNum {
			return out[i].SeqNum < out[j].SeqNum
		}
		return out[i].ClOrdID < out[j].ClOrdID
	})
	return out
}
