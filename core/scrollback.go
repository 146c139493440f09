package core

import (
	"context"
	"sync"

	"pkt.systems/gridmux/internal/logx"
	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

// reconciler replays previously buffered output into a fresh pane before
// live delivery starts, so navigating back to a session never shows a blank
// pane. The live handler is registered before the scrollback fetch and
// queues chunks that arrive while the fetch is in flight; after the history
// write the queue is flushed in order, skipping chunks whose stream offset
// the snapshot already covers. Closing the window where output emitted
// mid-fetch would otherwise be lost or replayed twice.
type reconciler struct {
	router  *Router
	backend Backend
	log     pslog.Logger
}

func newReconciler(router *Router, backend Backend, logger pslog.Logger) *reconciler {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &reconciler{router: router, backend: backend, log: logger}
}

// Attach wires one session's live output into its adapter. If the adapter
// is torn down while the fetch is in flight (navigated away before the
// fetch resolved), Attach abandons silently and unregisters.
func (r *reconciler) Attach(ctx context.Context, id schema.SessionID, adapter *paneAdapter) error {
	log := logx.WithSession(ctx, id)

	type chunk struct {
		data []byte
		off  int64
	}
	var mu sync.Mutex
	var queue []chunk
	replaying := true
	r.router.Register(id, func(data []byte, off int64) {
		mu.Lock()
		defer mu.Unlock()
		if replaying {
			queue = append(queue, chunk{data: append([]byte(nil), data...), off: off})
			return
		}
		adapter.WriteChunk(data)
	})
	if adapter.Disposed() {
		// Pane torn down between construction and attach.
		r.router.Unregister(id)
		return nil
	}

	history, end, err := r.backend.FetchScrollback(ctx, id)
	if err != nil {
		if adapter.Disposed() {
			r.router.Unregister(id)
			log.Debug("scrollback attach abandoned")
			return nil
		}
		// Keep live delivery; the pane just starts without history.
		log.Warn("scrollback fetch failed", "err", err)
		mu.Lock()
		for _, c := range queue {
			adapter.WriteChunk(c.data)
		}
		queue = nil
		replaying = false
		mu.Unlock()
		return err
	}
	if adapter.Disposed() {
		r.router.Unregister(id)
		log.Debug("scrollback attach abandoned")
		return nil
	}
	if len(history) > 0 {
		adapter.WriteChunk(history)
	}

	mu.Lock()
	flushed := 0
	for _, c := range queue {
		// A chunk at or below the snapshot's end offset was appended to the
		// retain buffer before the snapshot was read; the history write
		// already replayed it.
		if c.off <= end {
			continue
		}
		adapter.WriteChunk(c.data)
		flushed++
	}
	queue = nil
	replaying = false
	mu.Unlock()
	log.Debug("scrollback attached", "history_bytes", len(history), "flushed_chunks", flushed)
	return nil
}
