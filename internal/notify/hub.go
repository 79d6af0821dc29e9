package notify

import (
	"context"
	"sync"

	"github.com/veridate/veridate/internal/types"
)

const subscriberBuffer = 16

// Hub fans live notifications out to in-process subscribers keyed by recipient.
// Slow subscribers miss events rather than blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan types.Notification]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan types.Notification]struct{})}
}

// Subscribe registers a subscriber for recipientID. Call the returned func to unsubscribe;
// it closes the channel.
func (h *Hub) Subscribe(recipientID string) (<-chan types.Notification, func()) {
	ch := make(chan types.Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subs[recipientID] == nil {
		h.subs[recipientID] = make(map[chan types.Notification]struct{})
	}
	h.subs[recipientID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[recipientID], ch)
			if len(h.subs[recipientID]) == 0 {
				delete(h.subs, recipientID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers n to the recipient's current subscribers.
func (h *Hub) Publish(_ context.Context, n types.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[n.RecipientID] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers for recipientID.
func (h *Hub) Subscribers(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[recipientID])
}
