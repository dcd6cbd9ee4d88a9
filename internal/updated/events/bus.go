// Package events fans the daemon's two bus signals, JobRemoved and
// PropertiesChanged, out to every live watcher of the Bus Surface's
// WatchEvents RPC. It is a specialization of the teacher's generic
// publish-subscribe pattern, narrowed to the single Event payload this
// daemon ever needs to broadcast.
package events

import "sync"

// Kind distinguishes the two signal shapes the Bus Surface emits.
type Kind string

const (
	// JobRemoved reports that a job has reached a terminal state and been
	// dropped from the registry; Errno carries its outcome.
	JobRemoved Kind = "job_removed"
	// PropertiesChanged reports a progress or version update on a job
	// that is still running.
	PropertiesChanged Kind = "properties_changed"
)

// Event is the payload delivered to every subscriber.
type Event struct {
	Kind       Kind
	JobID      int64
	ObjectPath string
	Version    string
	Progress   uint32
	Errno      int
}

// Bus is a multi-subscriber, non-blocking event fan-out. Publish never
// blocks on a slow subscriber: each subscriber has its own buffered
// channel, and a full channel causes that subscriber to miss the event
// rather than stall every other watcher and the publisher.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a new watcher and returns its event channel along
// with a cancel function the watcher must call when it stops reading
// (typically when its gRPC stream context is done).
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 32)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many watchers are currently attached.
// Intended for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
