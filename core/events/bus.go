package events

import (
	"sync"
)

const defaultBacklog = 256

// Bus is an in-process emitter that retains a bounded backlog of recent
// events and fans new events out to any number of subscribers. Slow
// subscribers drop events rather than blocking the emitting operation.
type Bus struct {
	mu      sync.Mutex
	backlog []Event
	limit   int
	nextID  uint64
	subs    map[uint64]chan Event
}

// NewBus constructs a bus retaining up to limit recent events. A
// non-positive limit falls back to a small default.
func NewBus(limit int) *Bus {
	if limit <= 0 {
		limit = defaultBacklog
	}
	return &Bus{
		limit: limit,
		subs:  make(map[uint64]chan Event),
	}
}

// Emit implements the Emitter interface.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.backlog = append(b.backlog, evt)
	if len(b.backlog) > b.limit {
		b.backlog = b.backlog[len(b.backlog)-b.limit:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its channel, a cancel
// function, and a copy of the retained backlog. The caller must invoke
// cancel once done to release the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func(), []Event) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	backlog := make([]Event, len(b.backlog))
	copy(backlog, b.backlog)
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel, backlog
}
