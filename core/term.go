package core

import (
	"strings"
	"sync"
	"time"

	"github.com/hinshun/vt10x"

	"pkt.systems/gridmux/schema"
)

const (
	minPaneCols = 2
	minPaneRows = 1
)

// paneAdapter owns one terminal-emulation buffer and the session's stream
// decoder. It accepts raw output chunks, applies geometry changes, and
// debounces backend resize notifications behind a per-adapter quiet-period
// timer so window drags do not flood the backend.
type paneAdapter struct {
	id       schema.SessionID
	debounce time.Duration
	notify   func(id schema.SessionID, cols, rows int)
	onOutput func(id schema.SessionID)

	mu          sync.Mutex
	term        vt10x.Terminal
	dec         streamDecoder
	cols, rows  int
	resizeTimer *time.Timer
	disposed    bool
}

func newPaneAdapter(id schema.SessionID, cols, rows int, debounce time.Duration,
	notify func(id schema.SessionID, cols, rows int),
	onOutput func(id schema.SessionID)) *paneAdapter {
	cols, rows = clampGeometry(cols, rows)
	return &paneAdapter{
		id:       id,
		debounce: debounce,
		notify:   notify,
		onOutput: onOutput,
		term:     vt10x.New(vt10x.WithSize(cols, rows)),
		cols:     cols,
		rows:     rows,
	}
}

func clampGeometry(cols, rows int) (int, int) {
	if cols < minPaneCols {
		cols = minPaneCols
	}
	if rows < minPaneRows {
		rows = minPaneRows
	}
	return cols, rows
}

// WriteChunk decodes the chunk and feeds it to the terminal buffer. Chunks
// arriving after Dispose are dropped.
func (a *paneAdapter) WriteChunk(data []byte) {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	text := a.dec.Decode(data)
	if text != "" {
		_, _ = a.term.Write([]byte(text))
	}
	onOutput := a.onOutput
	a.mu.Unlock()
	if onOutput != nil && text != "" {
		onOutput(a.id)
	}
}

// Resize applies the geometry to the terminal buffer immediately and arms
// the debounce timer for the backend notification. Rapid calls coalesce
// into one settled notification.
func (a *paneAdapter) Resize(cols, rows int) {
	cols, rows = clampGeometry(cols, rows)
	a.mu.Lock()
	if a.disposed || (cols == a.cols && rows == a.rows) {
		a.mu.Unlock()
		return
	}
	a.cols, a.rows = cols, rows
	a.term.Resize(cols, rows)
	if a.resizeTimer != nil {
		a.resizeTimer.Stop()
	}
	a.resizeTimer = time.AfterFunc(a.debounce, a.settleResize)
	a.mu.Unlock()
}

func (a *paneAdapter) settleResize() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	cols, rows := a.cols, a.rows
	notify := a.notify
	a.mu.Unlock()
	if notify != nil {
		notify(a.id, cols, rows)
	}
}

// Geometry reports the adapter's current rendered geometry.
func (a *paneAdapter) Geometry() (cols, rows int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cols, a.rows
}

// Disposed reports whether the adapter has been torn down.
func (a *paneAdapter) Disposed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disposed
}

// Dispose releases the adapter's resources and stops the pending resize
// timer. Dispose is idempotent; writes after it are dropped.
func (a *paneAdapter) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.disposed = true
	if a.resizeTimer != nil {
		a.resizeTimer.Stop()
		a.resizeTimer = nil
	}
}

// View snapshots the rendered cells and cursor for a transport.
func (a *paneAdapter) View() schema.PaneViewResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return schema.PaneViewResponse{}
	}
	a.term.Lock()
	cols, rows := a.term.Size()
	lines := make([]string, 0, rows)
	for y := 0; y < rows; y++ {
		var b strings.Builder
		b.Grow(cols)
		for x := 0; x < cols; x++ {
			r := a.term.Cell(x, y).Char
			if r == 0 {
				r = ' '
			}
			b.WriteRune(r)
		}
		lines = append(lines, b.String())
	}
	cursor := a.term.Cursor()
	visible := a.term.CursorVisible()
	a.term.Unlock()
	return schema.PaneViewResponse{
		Lines:         lines,
		CursorX:       cursor.X,
		CursorY:       cursor.Y,
		CursorVisible: visible,
		Cols:          cols,
		Rows:          rows,
	}
}
