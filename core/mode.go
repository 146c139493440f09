package core

import (
	"context"
	"time"

	"pkt.systems/gridmux/schema"
)

// Input mode state machine. Navigation is the initial mode; activeSessionID
// is non-empty if and only if the mode is Terminal. All transitions run
// under the workspace mutex so the escape timer, the UI, and session
// removal never interleave half-applied state.

const escByte = 0x1b

func (w *workspace) SelectDirection(ctx context.Context, req schema.SelectDirectionRequest) (schema.SelectDirectionResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return schema.SelectDirectionResponse{}, schema.ErrNoSessions
	}
	current := w.selectedIndexLocked()
	layout := Layout(len(w.order))
	next := moveIndex(current, req.Dir, layout, len(w.order))
	if next != current {
		w.selected = w.order[next]
		w.emitAsyncLocked(schema.WorkspaceEvent{Type: schema.WorkspaceMode})
	}
	return schema.SelectDirectionResponse{Selected: w.selected}, nil
}

func (w *workspace) SelectIndex(ctx context.Context, req schema.SelectIndexRequest) (schema.SelectIndexResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return schema.SelectIndexResponse{}, schema.ErrNoSessions
	}
	if req.Index >= 0 && req.Index < len(w.order) && w.order[req.Index] != w.selected {
		w.selected = w.order[req.Index]
		w.emitAsyncLocked(schema.WorkspaceEvent{Type: schema.WorkspaceMode})
	}
	// Out-of-range jumps are a no-op, not an error.
	return schema.SelectIndexResponse{Selected: w.selected}, nil
}

func (w *workspace) Activate(ctx context.Context, req schema.ActivateRequest) (schema.ActivateResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return schema.ActivateResponse{}, schema.ErrNoSessions
	}
	if w.selected == "" {
		return schema.ActivateResponse{}, schema.ErrNoSelection
	}
	if w.mode != schema.ModeTerminal || w.active != w.selected {
		w.mode = schema.ModeTerminal
		w.active = w.selected
		w.log.With("session", w.active).Debug("terminal mode entered")
		w.emitAsyncLocked(schema.WorkspaceEvent{Type: schema.WorkspaceMode, SessionID: w.active})
	}
	return schema.ActivateResponse{Active: w.active}, nil
}

func (w *workspace) ExitToNavigation(ctx context.Context, req schema.ExitToNavigationRequest) (schema.ExitToNavigationResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode == schema.ModeTerminal {
		w.exitToNavigationLocked()
		w.emitAsyncLocked(schema.WorkspaceEvent{Type: schema.WorkspaceMode})
	}
	return schema.ExitToNavigationResponse{Selected: w.selected}, nil
}

// SendKey forwards one key to the focused session, applying the
// double-escape gesture. Two escapes inside the timeout leave terminal mode
// and send nothing; a lone escape whose timer fires sends exactly one
// literal ESC byte so editors inside the terminal still see a normal
// Escape. A different key while an escape is pending flushes the ESC first,
// in order, never merged or reordered.
func (w *workspace) SendKey(ctx context.Context, req schema.SendKeyRequest) (schema.SendKeyResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode != schema.ModeTerminal || w.active == "" {
		return schema.SendKeyResponse{Mode: w.mode}, schema.ErrNotInTerminalMode
	}
	if req.Escape {
		if w.escPending {
			w.cancelEscapeLocked()
			w.exitToNavigationLocked()
			w.emitAsyncLocked(schema.WorkspaceEvent{Type: schema.WorkspaceMode})
			return schema.SendKeyResponse{Mode: w.mode}, nil
		}
		w.escPending = true
		w.escTimer = time.AfterFunc(w.cfg.EscapeTimeout, w.flushEscape)
		return schema.SendKeyResponse{Mode: w.mode}, nil
	}
	data := req.Data
	if w.escPending {
		w.cancelEscapeLocked()
		data = append([]byte{escByte}, data...)
	}
	if len(data) > 0 {
		w.writeLocked(w.active, data)
	}
	return schema.SendKeyResponse{Mode: w.mode}, nil
}

// flushEscape runs when the double-escape window expires: the held escape
// was a real one and is forwarded to the session.
func (w *workspace) flushEscape() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.escPending {
		return
	}
	w.escPending = false
	w.escTimer = nil
	if w.mode != schema.ModeTerminal || w.active == "" {
		return
	}
	w.writeLocked(w.active, []byte{escByte})
}

// writeLocked queues the bytes on the session's writer while holding the
// workspace mutex, so keystrokes and timer-flushed escapes are ordered by
// the same lock that decided them. The backend write itself runs on the
// writer goroutine; a session whose PTY stops draining input cannot stall
// the workspace.
func (w *workspace) writeLocked(id schema.SessionID, data []byte) {
	if p := w.panes[id]; p != nil {
		p.writer.enqueue(data)
	}
}

func (w *workspace) exitToNavigationLocked() {
	w.cancelEscapeLocked()
	w.mode = schema.ModeNavigation
	w.active = ""
}

func (w *workspace) cancelEscapeLocked() {
	if w.escTimer != nil {
		w.escTimer.Stop()
		w.escTimer = nil
	}
	w.escPending = false
}

// reassignSelectionLocked repairs the selection after its session was
// removed: prefer the session now occupying the same pane index, else pane
// zero, else nothing when the workspace is empty.
func (w *workspace) reassignSelectionLocked(removedIndex int) {
	if len(w.order) == 0 {
		w.selected = ""
		return
	}
	if removedIndex >= 0 && removedIndex < len(w.order) {
		w.selected = w.order[removedIndex]
		return
	}
	w.selected = w.order[0]
}

func (w *workspace) selectedIndexLocked() int {
	for i, id := range w.order {
		if id == w.selected {
			return i
		}
	}
	return 0
}

// emitAsyncLocked publishes an event without holding the workspace mutex
// across the sink call.
func (w *workspace) emitAsyncLocked(event schema.WorkspaceEvent) {
	sink := w.sink
	if sink == nil {
		return
	}
	go sink.OnWorkspaceEvent(event)
}

// moveIndex resolves a directional move in the grid geometry. Moves past an
// edge, or into an empty trailing cell, stay put.
func moveIndex(current int, dir schema.Direction, layout schema.GridLayout, count int) int {
	row := current / layout.Cols
	col := current % layout.Cols
	switch dir {
	case schema.DirLeft:
		col--
	case schema.DirRight:
		col++
	case schema.DirUp:
		row--
	case schema.DirDown:
		row++
	default:
		return current
	}
	if col < 0 || col >= layout.Cols || row < 0 || row >= layout.Rows {
		return current
	}
	next := row*layout.Cols + col
	if next >= count {
		return current
	}
	return next
}
