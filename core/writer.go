package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

const writeQueueDepth = 64

// sessionWriter decouples input delivery from the workspace lock. Keys for
// one session are written by a single goroutine in enqueue order; a session
// whose PTY stops draining input backs up its own queue and nothing else.
type sessionWriter struct {
	id      schema.SessionID
	backend Backend
	log     pslog.Logger

	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func newSessionWriter(id schema.SessionID, backend Backend, logger pslog.Logger) *sessionWriter {
	sw := &sessionWriter{
		id:      id,
		backend: backend,
		log:     logger.With("session", id),
		queue:   make(chan []byte, writeQueueDepth),
		done:    make(chan struct{}),
	}
	go sw.run()
	return sw
}

func (sw *sessionWriter) run() {
	for {
		select {
		case <-sw.done:
			return
		case data := <-sw.queue:
			err := sw.backend.Write(context.Background(), sw.id, data)
			if err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
				sw.log.Warn("session write failed", "err", err)
			}
		}
	}
}

// enqueue hands bytes to the writer goroutine. When the queue is full the
// bytes are dropped rather than stalling the caller.
func (sw *sessionWriter) enqueue(data []byte) {
	select {
	case <-sw.done:
	case sw.queue <- data:
	default:
		sw.log.Warn("session write dropped", "bytes", len(data))
	}
}

// stop ends the writer goroutine. Queued but unwritten bytes are discarded;
// stop only runs during pane teardown. Idempotent.
func (sw *sessionWriter) stop() {
	sw.once.Do(func() { close(sw.done) })
}
