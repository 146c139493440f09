// Package tui renders the workspace grid to an attached terminal and
// translates keypresses into workspace operations. The same client serves
// local attach and SSH sessions; the caller supplies the byte streams and a
// window-size channel.
package tui

import (
	"context"
	"errors"
	"io"

	"pkt.systems/gridmux/core"
	"pkt.systems/gridmux/internal/eventbus"
	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

// Window carries a terminal size update from the attached client.
type Window struct {
	Width  int
	Height int
}

// PushWindow queues a size update without blocking, evicting the oldest
// pending update when the channel is full so the final settled size is
// never the one lost. Intended for a single producer per channel.
func PushWindow(ch chan Window, win Window) {
	select {
	case ch <- win:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- win:
	default:
	}
}

// Client drives one attached terminal.
type Client struct {
	ws  core.Workspace
	bus *eventbus.Bus
	in  io.Reader
	out io.Writer

	screen   *screen
	width    int
	height   int
	mode     schema.Mode
	selected schema.SessionID
}

// NewClient constructs a Client for the given streams.
func NewClient(ws core.Workspace, bus *eventbus.Bus, in io.Reader, out io.Writer) *Client {
	return &Client{
		ws:     ws,
		bus:    bus,
		in:     in,
		out:    out,
		screen: newScreen(out),
	}
}

// Run attaches the client and blocks until the user quits, the input stream
// closes, or the context is canceled.
func (c *Client) Run(ctx context.Context, width, height int, winCh <-chan Window) error {
	log := pslog.Ctx(ctx)
	c.width, c.height = width, height

	c.screen.EnterAltScreen()
	defer c.screen.ExitAltScreen()

	keys := make(chan key, 16)
	go readKeys(c.in, keys)

	var events <-chan schema.WorkspaceEvent
	if c.bus != nil {
		var unsubscribe func()
		events, unsubscribe = c.bus.Subscribe()
		defer unsubscribe()
	}

	c.applyViewport(ctx)
	c.redraw(ctx, log)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			quit, err := c.handleKey(ctx, k)
			if err != nil {
				log.Warn("key handling failed", "err", err)
			}
			if quit {
				return nil
			}
			c.redraw(ctx, log)
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			c.width, c.height = win.Width, win.Height
			c.applyViewport(ctx)
			c.redraw(ctx, log)
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			drainEvents(events)
			c.redraw(ctx, log)
		}
	}
}

// drainEvents coalesces a burst of queued events into one repaint.
func drainEvents(events <-chan schema.WorkspaceEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) applyViewport(ctx context.Context) {
	gridHeight := c.height - 1
	if gridHeight < 1 {
		gridHeight = 1
	}
	_, _ = c.ws.SetViewport(ctx, schema.SetViewportRequest{Width: c.width, Height: gridHeight})
}

func (c *Client) handleKey(ctx context.Context, k key) (bool, error) {
	if c.mode == schema.ModeTerminal {
		return false, c.sendKey(ctx, k)
	}
	switch k.kind {
	case keyUp:
		return false, c.move(ctx, schema.DirUp)
	case keyDown:
		return false, c.move(ctx, schema.DirDown)
	case keyLeft:
		return false, c.move(ctx, schema.DirLeft)
	case keyRight:
		return false, c.move(ctx, schema.DirRight)
	case keyEnter:
		_, err := c.ws.Activate(ctx, schema.ActivateRequest{})
		return false, ignoreIdle(err)
	case keyCtrlC, keyCtrlQ:
		return true, nil
	case keyRune:
		return c.handleNavRune(ctx, k.r)
	}
	return false, nil
}

func (c *Client) handleNavRune(ctx context.Context, r rune) (bool, error) {
	switch r {
	case 'q':
		return true, nil
	case 'n':
		_, err := c.ws.CreatePane(ctx, schema.CreatePaneRequest{})
		return false, ignoreIdle(err)
	case 'x':
		if c.selected == "" {
			return false, nil
		}
		_, err := c.ws.ClosePane(ctx, schema.ClosePaneRequest{SessionID: c.selected})
		return false, err
	case 'h':
		return false, c.move(ctx, schema.DirLeft)
	case 'j':
		return false, c.move(ctx, schema.DirDown)
	case 'k':
		return false, c.move(ctx, schema.DirUp)
	case 'l':
		return false, c.move(ctx, schema.DirRight)
	}
	if r >= '1' && r <= '9' {
		_, err := c.ws.SelectIndex(ctx, schema.SelectIndexRequest{Index: int(r - '1')})
		return false, err
	}
	return false, nil
}

func (c *Client) move(ctx context.Context, dir schema.Direction) error {
	_, err := c.ws.SelectDirection(ctx, schema.SelectDirectionRequest{Dir: dir})
	return ignoreIdle(err)
}

func (c *Client) sendKey(ctx context.Context, k key) error {
	req := schema.SendKeyRequest{Data: k.raw}
	if k.kind == keyEscape {
		req = schema.SendKeyRequest{Escape: true}
	}
	_, err := c.ws.SendKey(ctx, req)
	if errors.Is(err, schema.ErrNotInTerminalMode) {
		return nil
	}
	return err
}

// ignoreIdle drops the errors that just mean there is nothing to act on.
func ignoreIdle(err error) error {
	if errors.Is(err, schema.ErrNoSessions) || errors.Is(err, schema.ErrNoSelection) {
		return nil
	}
	return err
}

func (c *Client) redraw(ctx context.Context, log pslog.Logger) {
	snapResp, err := c.ws.Snapshot(ctx, schema.SnapshotRequest{})
	if err != nil {
		log.Warn("snapshot failed", "err", err)
		return
	}
	snap := snapResp.Workspace
	c.mode = snap.Mode
	c.selected = snap.Selected

	views := make(map[schema.SessionID]schema.PaneViewResponse, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		view, err := c.ws.PaneView(ctx, schema.PaneViewRequest{SessionID: sess.Session.ID})
		if err != nil {
			if !errors.Is(err, schema.ErrSessionNotFound) {
				log.Warn("pane view failed", "session", sess.Session.ID, "err", err)
			}
			continue
		}
		views[sess.Session.ID] = view
	}

	lines, cursorRow, cursorCol, showCursor := renderGrid(snap, views, c.width, c.height)
	if err := c.screen.Render(lines, cursorRow, cursorCol, showCursor); err != nil {
		log.Debug("render failed", "err", err)
	}
}
