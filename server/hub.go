package server

import "sync"

// eventHub fans progress events for one run ID out to every client streaming
// that run. Subscriber channels are owned by the SSE handler; the hub only
// sends and drops events for clients that stop reading.
type eventHub struct {
	mu     sync.Mutex
	topics map[string]map[chan []byte]bool
}

func newEventHub() *eventHub {
	return &eventHub{topics: make(map[string]map[chan []byte]bool)}
}

func (h *eventHub) Subscribe(topic string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan []byte]bool)
		h.topics[topic] = subs
	}
	subs[ch] = true
}

func (h *eventHub) Unsubscribe(topic string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *eventHub) Publish(topic string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[topic] {
		select {
		case ch <- msg:
		default:
			// client not reading, drop
		}
	}
}
