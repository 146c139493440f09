package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/gridmux/internal/logx"
	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

// pane couples one session with its terminal buffer adapter and its input
// writer.
type pane struct {
	session schema.Session
	adapter *paneAdapter
	writer  *sessionWriter
	// closing marks a pending destroy; the session must not receive new
	// output handler registrations while set.
	closing bool
}

// workspace implements Workspace. All focus/mode state is mutated under mu
// by defined transition methods, never ad hoc from UI callbacks. The output
// handler registry is touched only by the workspace and the reconciler.
type workspace struct {
	cfg     schema.ServiceConfig
	backend Backend
	router  *Router
	recon   *reconciler
	sink    EventSink
	log     pslog.Logger

	mu       sync.Mutex
	order    []schema.SessionID
	panes    map[schema.SessionID]*pane
	mode     schema.Mode
	selected schema.SessionID
	active   schema.SessionID

	escPending bool
	escTimer   *time.Timer

	viewW, viewH int

	started bool
	closed  bool
	cancel  context.CancelFunc
	routing sync.WaitGroup
}

// NewWorkspace constructs the workspace controller.
func NewWorkspace(cfg schema.ServiceConfig, deps ServiceDeps) (Workspace, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errors.New("backend is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	router := NewRouter(deps.Backend, logger)
	w := &workspace{
		cfg:     normalized,
		backend: deps.Backend,
		router:  router,
		recon:   newReconciler(router, deps.Backend, logger),
		sink:    deps.EventSink,
		log:     logger,
		mode:    schema.ModeNavigation,
		panes:   make(map[schema.SessionID]*pane),
	}
	router.SetExitFunc(w.handleExit)
	return w, nil
}

func (w *workspace) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("workspace already started")
	}
	w.started = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.routing.Add(1)
	go func() {
		defer w.routing.Done()
		w.router.Run(runCtx)
	}()

	existing, err := w.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, session := range existing {
		w.adoptSession(runCtx, session)
	}
	if len(existing) > 0 {
		w.emit(schema.WorkspaceEvent{Type: schema.WorkspaceSessions})
	}
	w.log.Info("workspace started", "sessions", len(existing))
	return nil
}

func (w *workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.cancelEscapeLocked()
	cancel := w.cancel
	ids := append([]schema.SessionID(nil), w.order...)
	w.mu.Unlock()

	for _, id := range ids {
		w.router.Unregister(id)
	}
	w.mu.Lock()
	for _, id := range ids {
		if p := w.panes[id]; p != nil {
			p.adapter.Dispose()
			p.writer.stop()
		}
	}
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.routing.Wait()
	w.log.Info("workspace closed", "sessions", len(ids))
	return nil
}

func (w *workspace) CreatePane(ctx context.Context, req schema.CreatePaneRequest) (schema.CreatePaneResponse, error) {
	if ctx == nil {
		return schema.CreatePaneResponse{}, errors.New("missing context")
	}
	w.mu.Lock()
	if len(w.order) >= w.cfg.MaxPanes {
		w.mu.Unlock()
		return schema.CreatePaneResponse{}, schema.ErrTooManyPanes
	}
	agent := req.Agent
	if agent == "" {
		agent = w.cfg.DefaultAgent
	}
	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = w.cfg.WorkingDir
	}
	w.mu.Unlock()

	log := w.log.With("agent", agent)
	log.Info("pane create start", "working_dir", workingDir)
	resp, err := w.backend.Create(ctx, schema.CreateSessionRequest{
		Agent:      agent,
		WorkingDir: workingDir,
		Branch:     req.Branch,
	})
	if err != nil {
		log.Warn("pane create failed", "err", err)
		return schema.CreatePaneResponse{}, fmt.Errorf("create session: %w", err)
	}
	session := resp.Session

	w.mu.Lock()
	if w.closed || len(w.order) >= w.cfg.MaxPanes {
		// Lost the race while the backend call was in flight.
		w.mu.Unlock()
		_ = w.backend.Destroy(ctx, session.ID)
		return schema.CreatePaneResponse{}, schema.ErrTooManyPanes
	}
	adapter := w.buildAdapterLocked(session.ID, len(w.order)+1)
	writer := newSessionWriter(session.ID, w.backend, w.log)
	w.order = append(w.order, session.ID)
	w.panes[session.ID] = &pane{session: session, adapter: adapter, writer: writer}
	w.renumberLocked()
	w.relayoutLocked()
	if w.selected == "" {
		w.selected = session.ID
	}
	session = w.panes[session.ID].session
	w.mu.Unlock()

	go w.attach(context.WithoutCancel(ctx), session.ID, adapter)

	w.emit(schema.WorkspaceEvent{Type: schema.WorkspaceSessions, SessionID: session.ID})
	log.Info("pane create ok", "session", session.ID, "pane", session.PaneIndex)
	return schema.CreatePaneResponse{Session: session}, nil
}

func (w *workspace) ClosePane(ctx context.Context, req schema.ClosePaneRequest) (schema.ClosePaneResponse, error) {
	session, removed := w.removePane(req.SessionID)
	if !removed {
		// Stale session: already gone, nothing to do.
		return schema.ClosePaneResponse{}, nil
	}
	log := w.log.With("session", req.SessionID)
	if err := w.backend.Destroy(ctx, req.SessionID); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		log.Warn("pane destroy failed", "err", err)
		return schema.ClosePaneResponse{Session: session}, fmt.Errorf("destroy session: %w", err)
	}
	log.Info("pane closed", "pane", session.PaneIndex)
	return schema.ClosePaneResponse{Session: session}, nil
}

// removePane tears down local pane state in the order required to avoid a
// freed render target receiving a final flush: unregister the output
// handler first, dispose the adapter second. The caller issues the backend
// destroy (if any) only after this returns.
func (w *workspace) removePane(id schema.SessionID) (schema.Session, bool) {
	w.mu.Lock()
	p, ok := w.panes[id]
	if !ok || p.closing {
		w.mu.Unlock()
		return schema.Session{}, false
	}
	p.closing = true
	w.mu.Unlock()

	w.router.Unregister(id)
	p.adapter.Dispose()
	p.writer.stop()

	w.mu.Lock()
	removedIndex := p.session.PaneIndex
	delete(w.panes, id)
	for i, sid := range w.order {
		if sid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.renumberLocked()
	w.relayoutLocked()
	modeChanged := false
	if w.active == id {
		w.exitToNavigationLocked()
		modeChanged = true
	}
	if w.selected == id {
		w.reassignSelectionLocked(removedIndex)
	}
	session := p.session
	w.mu.Unlock()

	w.emit(schema.WorkspaceEvent{Type: schema.WorkspaceSessions, SessionID: id})
	if modeChanged {
		w.emit(schema.WorkspaceEvent{Type: schema.WorkspaceMode})
	}
	return session, true
}

// handleExit runs when the backend reports a session's process exited. The
// pane is torn down like a close, minus the backend destroy call; the state
// machine must never leave the focus pointing at a dead session.
func (w *workspace) handleExit(id schema.SessionID, code int) {
	if _, removed := w.removePane(id); removed {
		w.log.With("session", id).Info("session exited", "code", code)
	}
}

func (w *workspace) Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return schema.SnapshotResponse{Workspace: w.snapshotLocked()}, nil
}

func (w *workspace) snapshotLocked() schema.WorkspaceSnapshot {
	sessions := make([]schema.SessionSnapshot, 0, len(w.order))
	for _, id := range w.order {
		p := w.panes[id]
		sessions = append(sessions, schema.SessionSnapshot{
			Session:  p.session,
			Selected: id == w.selected,
			Active:   id == w.active,
		})
	}
	return schema.WorkspaceSnapshot{
		Sessions: sessions,
		Mode:     w.mode,
		Selected: w.selected,
		Active:   w.active,
		Layout:   Layout(len(w.order)),
	}
}

func (w *workspace) SetViewport(ctx context.Context, req schema.SetViewportRequest) (schema.SetViewportResponse, error) {
	w.mu.Lock()
	w.viewW, w.viewH = req.Width, req.Height
	w.relayoutLocked()
	geometry := w.paneGeometryLocked()
	w.mu.Unlock()
	return schema.SetViewportResponse{Pane: geometry}, nil
}

func (w *workspace) PaneView(ctx context.Context, req schema.PaneViewRequest) (schema.PaneViewResponse, error) {
	w.mu.Lock()
	p, ok := w.panes[req.SessionID]
	w.mu.Unlock()
	if !ok {
		return schema.PaneViewResponse{}, schema.ErrSessionNotFound
	}
	return p.adapter.View(), nil
}

// paneGeometryLocked derives one pane's interior cell size from the client
// viewport and the current grid: each cell loses two columns and two rows
// to the border and header.
func (w *workspace) paneGeometryLocked() schema.PaneGeometry {
	layout := Layout(len(w.order))
	if w.viewW <= 0 || w.viewH <= 0 {
		return schema.PaneGeometry{}
	}
	cols := w.viewW/layout.Cols - 2
	rows := w.viewH/layout.Rows - 2
	cols, rows = clampGeometry(cols, rows)
	return schema.PaneGeometry{Cols: cols, Rows: rows}
}

func (w *workspace) relayoutLocked() {
	if w.viewW <= 0 || w.viewH <= 0 || len(w.order) == 0 {
		return
	}
	geometry := w.paneGeometryLocked()
	for _, id := range w.order {
		w.panes[id].adapter.Resize(geometry.Cols, geometry.Rows)
	}
}

func (w *workspace) renumberLocked() {
	for i, id := range w.order {
		w.panes[id].session.PaneIndex = i
	}
}

func (w *workspace) buildAdapterLocked(id schema.SessionID, count int) *paneAdapter {
	layout := Layout(count)
	cols, rows := minPaneCols, minPaneRows
	if w.viewW > 0 && w.viewH > 0 {
		cols = w.viewW/layout.Cols - 2
		rows = w.viewH/layout.Rows - 2
	}
	return newPaneAdapter(id, cols, rows, w.cfg.ResizeDebounce, w.notifyResize, w.emitOutput)
}

// notifyResize runs on a debounce timer goroutine once a pane's size has
// settled.
func (w *workspace) notifyResize(id schema.SessionID, cols, rows int) {
	if err := w.backend.Resize(context.Background(), id, cols, rows); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		w.log.With("session", id).Warn("resize failed", "err", err)
	}
}

func (w *workspace) emitOutput(id schema.SessionID) {
	w.emit(schema.WorkspaceEvent{Type: schema.WorkspaceOutput, SessionID: id})
}

func (w *workspace) emit(event schema.WorkspaceEvent) {
	if w.sink != nil {
		w.sink.OnWorkspaceEvent(event)
	}
}

// adoptSession rebuilds a pane for a session the backend already had when
// the workspace started.
func (w *workspace) adoptSession(ctx context.Context, session schema.Session) {
	w.mu.Lock()
	if _, exists := w.panes[session.ID]; exists || len(w.order) >= w.cfg.MaxPanes {
		w.mu.Unlock()
		return
	}
	adapter := w.buildAdapterLocked(session.ID, len(w.order)+1)
	writer := newSessionWriter(session.ID, w.backend, w.log)
	w.order = append(w.order, session.ID)
	w.panes[session.ID] = &pane{session: session, adapter: adapter, writer: writer}
	w.renumberLocked()
	w.relayoutLocked()
	if w.selected == "" {
		w.selected = session.ID
	}
	w.mu.Unlock()

	go w.attach(ctx, session.ID, adapter)
}

func (w *workspace) attach(ctx context.Context, id schema.SessionID, adapter *paneAdapter) {
	ctx = logx.ContextWithSessionLogger(ctx, w.log.With("session", id), id)
	if err := w.recon.Attach(ctx, id, adapter); err != nil {
		logx.Ctx(ctx).Warn("pane attach incomplete", "err", err)
	}
}
