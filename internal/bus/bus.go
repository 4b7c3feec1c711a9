// Package bus is the in-memory fan-out for scan-event lifecycle
// transitions (§4.10): every component that advances an event's state
// publishes a Notification; the metrics package and the websocket hub
// subscribe (the webhook batcher is fed directly through Batcher.Add by
// the same components, not through the bus). Unlike the teacher's eventbus
// this never touches the database — scan_events is the durable record,
// notifications are ephemeral and lossy by design (a dropped
// notification only delays a webhook/metric, it never corrupts state).
package bus

import (
	"sync"

	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Notification is one lifecycle transition: Event just became Kind.
type Notification struct {
	Kind  domain.EventKind
	Event *domain.ScanEvent
}

// Bus fans out notifications to any number of subscribers. Each
// subscriber gets its own buffered channel; a slow subscriber drops
// notifications rather than blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Notification
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that receives every future Publish call.
func (b *Bus) Subscribe() chan Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Notification, 256)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes ch. Safe to call more than once.
func (b *Bus) Unsubscribe(ch chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish fans n out to every subscriber. Non-blocking: a full
// subscriber channel drops the notification instead of stalling the
// reconciliation loop.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
}

// Shutdown closes every subscriber channel. Callers that are still
// ranging over a subscription will see it end.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
