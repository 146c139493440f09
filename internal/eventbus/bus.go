package eventbus

import (
	"context"
	"sync"

	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

// Bus fans workspace events out to attached UI clients. Publishing never
// blocks; a subscriber that falls behind loses events and repaints from the
// next snapshot instead.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan schema.WorkspaceEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan schema.WorkspaceEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan schema.WorkspaceEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.WorkspaceEvent, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	return ch, func() {
		// Close under the mutex so a concurrent publish can never send on
		// the closed channel. Idempotent.
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
		b.log.Debug("eventbus unsubscribe")
	}
}

// OnWorkspaceEvent publishes an event to all subscribers. It satisfies the
// core event sink. Sends are non-blocking and run under the mutex, which
// serializes them against the cancel-side close.
func (b *Bus) OnWorkspaceEvent(event schema.WorkspaceEvent) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
