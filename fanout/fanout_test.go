package fanout

import (
	"fmt"
	"testing"
)

// countingStats is a test double for the Stats interface.
type countingStats struct {
	published   int
	dropped     int
	subscribers int
}

func (s *countingStats) EventPublished()       { s.published++ }
func (s *countingStats) EventDropped()         { s.dropped++ }
func (s *countingStats) SubscriberCount(n int) { s.subscribers = n }

func TestHub_DeliversInPublishOrder(t *testing.T) {
	hub := NewHub(8, nil)
	sub := hub.Subscribe(SessionTopic("abc"))
	defer sub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(SessionTopic("abc"), fmt.Sprintf("msg-%d", i))
	}

	for i := 0; i < 5; i++ {
		got := <-sub.C()
		want := fmt.Sprintf("msg-%d", i)
		if got != want {
			t.Errorf("Expected %q at position %d, got %q", want, i, got)
		}
	}
}

func TestHub_LateSubscriberSeesNothing(t *testing.T) {
	hub := NewHub(8, nil)

	hub.Publish(SessionTopic("abc"), "before")

	sub := hub.Subscribe(SessionTopic("abc"))
	defer sub.Close()

	select {
	case msg := <-sub.C():
		t.Errorf("Late subscriber should receive nothing, got %q", msg)
	default:
	}

	hub.Publish(SessionTopic("abc"), "after")
	if got := <-sub.C(); got != "after" {
		t.Errorf("Expected %q, got %q", "after", got)
	}
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	stats := &countingStats{}
	hub := NewHub(2, stats)
	slow := hub.Subscribe("topic")
	defer slow.Close()

	delivered := 0
	for i := 0; i < 3; i++ {
		delivered += hub.Publish("topic", "msg")
	}

	if delivered != 2 {
		t.Errorf("Expected 2 deliveries into a buffer of 2, got %d", delivered)
	}
	if stats.dropped != 1 {
		t.Errorf("Expected 1 dropped event, got %d", stats.dropped)
	}
	if stats.published != 3 {
		t.Errorf("Expected 3 published events, got %d", stats.published)
	}

	// Draining the buffer makes room again.
	<-slow.C()
	if n := hub.Publish("topic", "msg"); n != 1 {
		t.Errorf("Expected delivery after draining, got %d", n)
	}
}

func TestHub_TopicsAreIsolated(t *testing.T) {
	hub := NewHub(8, nil)
	a := hub.Subscribe(SessionTopic("aaa"))
	b := hub.Subscribe(SessionTopic("bbb"))
	defer a.Close()
	defer b.Close()

	hub.Publish(SessionTopic("aaa"), "only-a")

	if got := <-a.C(); got != "only-a" {
		t.Errorf("Expected %q on topic a, got %q", "only-a", got)
	}
	select {
	case msg := <-b.C():
		t.Errorf("Topic b should receive nothing, got %q", msg)
	default:
	}
}

func TestSubscriber_CloseDetachesAndIsIdempotent(t *testing.T) {
	stats := &countingStats{}
	hub := NewHub(8, stats)
	sub := hub.Subscribe("topic")

	if n := hub.Subscribers("topic"); n != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", n)
	}

	sub.Close()
	sub.Close() // must not panic or double-count

	if n := hub.Subscribers("topic"); n != 0 {
		t.Errorf("Expected 0 subscribers after close, got %d", n)
	}
	if stats.subscribers != 0 {
		t.Errorf("Expected stats to report 0 subscribers, got %d", stats.subscribers)
	}

	// Publishing to a closed subscriber delivers to nobody.
	if n := hub.Publish("topic", "msg"); n != 0 {
		t.Errorf("Expected 0 deliveries after close, got %d", n)
	}
}
