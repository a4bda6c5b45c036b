// Package events is the event-stream boundary: the router publishes one
// event per step (message, agent status, decision, completion, error) and
// consumers such as the TUI watcher or a headless runner subscribe instead
// of polling.
package events

import (
	"sync"
)

// Bus is a channel-based pub-sub bus with per-topic and all-topic
// subscriptions. Publishing never blocks: a subscriber that falls behind
// its buffer drops events.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event
	allSubs []chan Event
	closed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers for one topic. bufSize defaults to 256 when <= 0.
func (b *Bus) Subscribe(topic string, bufSize int) <-chan Event {
	ch := newSubChannel(bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// SubscribeAll registers for every topic on a single channel.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	ch := newSubChannel(bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Publish delivers an event to the topic's subscribers and to all-topic
// subscribers, dropping it for any subscriber whose buffer is full.
func (b *Bus) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[topic] {
		deliver(ch, event)
	}
	for _, ch := range b.allSubs {
		deliver(ch, event)
	}
}

// Close closes the bus and every subscriber channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.allSubs {
		close(ch)
	}
}

func newSubChannel(bufSize int) chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}
	return make(chan Event, bufSize)
}

func deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		// Subscriber is behind; drop rather than block the loop.
	}
}
