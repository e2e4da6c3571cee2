// fanout/fanout.go
package fanout

import (
	"sync"
)

// GlobalTopic carries best-effort server-wide announcements. It exists for the
// lifetime of the hub and needs no traffic to stay alive.
const GlobalTopic = "global"

// SessionTopic names the per-session topic for a shareable link.
func SessionTopic(link string) string {
	return "session:" + link
}

// Stats receives delivery counters. The monitor package implements it; a nil
// sink is fine.
type Stats interface {
	EventPublished()
	EventDropped()
	SubscriberCount(n int)
}

// Subscriber is one attached listener. Messages arrive on C in publish order
// until Close. The channel is never closed by the hub; a closed subscriber
// simply stops receiving.
type Subscriber struct {
	topic string
	ch    chan string
	hub   *Hub
	once  sync.Once
}

// C is the receive side of the subscription.
func (s *Subscriber) C() <-chan string {
	return s.ch
}

// Close detaches the subscriber. Idempotent, returns promptly, and never
// blocks a concurrent publish.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is an in-process topic broadcaster. Publish is fire-and-forget and
// at-most-once: a subscriber whose buffer is full loses that message rather
// than stalling the publisher, and nothing is replayed to late subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
	buffer int
	stats  Stats
}

// NewHub creates a hub whose subscribers buffer up to buffer messages each.
func NewHub(buffer int, stats Stats) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		topics: make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
		stats:  stats,
	}
}

// Subscribe attaches a new listener to topic.
func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{
		topic: topic,
		ch:    make(chan string, h.buffer),
		hub:   h,
	}

	h.mu.Lock()
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.topics[topic] = set
	}
	set[sub] = struct{}{}
	total := h.totalLocked()
	h.mu.Unlock()

	if h.stats != nil {
		h.stats.SubscriberCount(total)
	}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if set, ok := h.topics[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	total := h.totalLocked()
	h.mu.Unlock()

	if h.stats != nil {
		h.stats.SubscriberCount(total)
	}
}

// Publish delivers payload to every current subscriber of topic and returns
// how many received it. Full subscribers are skipped.
func (h *Hub) Publish(topic, payload string) int {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.topics[topic]))
	for sub := range h.topics[topic] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			if h.stats != nil {
				h.stats.EventDropped()
			}
		}
	}
	if h.stats != nil {
		h.stats.EventPublished()
	}
	return delivered
}

// Subscribers reports the number of listeners currently attached to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) totalLocked() int {
	n := 0
	for _, set := range h.topics {
		n += len(set)
	}
	return n
}
