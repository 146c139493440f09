package core

import (
	"context"
	"sync"

	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

// outputHandler receives raw output chunks for one session, with the
// stream offset the chunk ends at.
type outputHandler func(data []byte, offset int64)

// Router holds the single subscription to the backend push stream for the
// workspace lifetime and demultiplexes events by session id. At most one
// handler is registered per session; registering again replaces the first.
// Events for unregistered sessions are dropped, which is expected during
// the construction window of a new pane. The router never buffers dropped
// events; it is stateless beyond the handler map.
type Router struct {
	backend Backend
	log     pslog.Logger

	mu       sync.Mutex
	handlers map[schema.SessionID]outputHandler
	onExit   func(id schema.SessionID, code int)
}

// NewRouter constructs a Router over the backend stream.
func NewRouter(backend Backend, logger pslog.Logger) *Router {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Router{
		backend:  backend,
		log:      logger,
		handlers: make(map[schema.SessionID]outputHandler),
	}
}

// SetExitFunc installs the callback invoked for session exit events.
func (r *Router) SetExitFunc(fn func(id schema.SessionID, code int)) {
	r.mu.Lock()
	r.onExit = fn
	r.mu.Unlock()
}

// Register stores the handler for the session, replacing any existing one.
func (r *Router) Register(id schema.SessionID, handler outputHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	if _, replaced := r.handlers[id]; replaced {
		r.log.With("session", id).Debug("router handler replaced")
	}
	r.handlers[id] = handler
	r.mu.Unlock()
}

// Unregister removes the handler for the session so late-arriving events
// are dropped rather than delivered to a torn-down pane.
func (r *Router) Unregister(id schema.SessionID) {
	r.mu.Lock()
	delete(r.handlers, id)
	r.mu.Unlock()
}

// Run subscribes to the backend stream and dispatches until the context is
// cancelled or the stream closes. Dispatch is synchronous from this single
// goroutine, which preserves per-session emission order.
func (r *Router) Run(ctx context.Context) {
	events, cancel := r.backend.Subscribe()
	defer cancel()
	r.log.Debug("router subscribed")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				r.log.Debug("router stream closed")
				return
			}
			r.dispatch(ev)
		}
	}
}

func (r *Router) dispatch(ev schema.BackendEvent) {
	switch ev.Type {
	case schema.BackendOutput:
		r.mu.Lock()
		handler := r.handlers[ev.SessionID]
		r.mu.Unlock()
		if handler == nil {
			r.log.With("session", ev.SessionID).Trace("router dropped output", "bytes", len(ev.Data))
			return
		}
		handler(ev.Data, ev.Offset)
	case schema.BackendExit:
		r.mu.Lock()
		onExit := r.onExit
		r.mu.Unlock()
		if onExit != nil {
			onExit(ev.SessionID, ev.ExitCode)
		}
	}
}
