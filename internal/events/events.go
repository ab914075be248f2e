// Package events carries typed lifecycle notifications between the sandbox
// subsystem and its consumers. Transitions are delivered as values on
// subscriber channels instead of string-keyed callbacks, so tests and the
// monitor command can assert on exactly what happened.
package events

import (
	"sync"
	"time"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeCreated         Type = "created"
	TypeStarted         Type = "started"
	TypeStopped         Type = "stopped"
	TypeErrored         Type = "errored"
	TypeRuntimeDetected Type = "runtime-detected"
	TypeHeartbeatLost   Type = "heartbeat-lost"
)

// Event is one lifecycle transition.
type Event struct {
	Type     Type
	Instance string // instance id, empty for runtime-level events
	Name     string // instance name or engine name
	Detail   string
	Time     time.Time
}

// subscriberBuffer bounds each subscriber channel. Publish never blocks; a
// subscriber that falls this far behind loses events.
const subscriberBuffer = 64

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its channel. The channel
// is closed when the bus closes.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
