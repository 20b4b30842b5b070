package live

import (
	"context"
	"log"
	"sync"
)

// DefaultBuffer is the per-subscriber channel depth before deliveries are
// dropped.
const DefaultBuffer = 16

// Hub is the in-process fan-out for freshly dispatched alerts. Stateless
// pass-through: no replay, no durability. Saturated subscribers lose
// deliveries instead of stalling the publisher; clients recover missed
// alerts from the durable store.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[int]chan any
	nextID int
	buffer int

	// OnDrop, when set, is called once per dropped delivery. Set before the
	// hub is shared between goroutines.
	OnDrop func()
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[string]map[int]chan any),
		buffer: buffer,
	}
}

// Publish delivers the payload to every current subscriber of the topic.
// Never blocks: a full subscriber channel means a dropped delivery.
func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.topics[topic] {
		select {
		case ch <- payload:
		default:
			log.Printf("[Hub] Dropping delivery on %q: subscriber %d is saturated", topic, id)
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
	return nil
}

// Subscribe registers a listener on a topic. The returned cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(topic string) (<-chan any, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[int]chan any)
	}
	id := h.nextID
	h.nextID++

	ch := make(chan any, h.buffer)
	h.topics[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.topics[topic], id)
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount reports how many listeners a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
