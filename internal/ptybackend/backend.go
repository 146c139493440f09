// Package ptybackend runs workspace sessions as local processes on
// pseudo-terminals. Each session gets a reader goroutine that pumps PTY
// output into the shared event stream and into a byte-capped retain buffer
// served by FetchScrollback.
package ptybackend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"pkt.systems/gridmux/schema"
	"pkt.systems/pslog"
)

const (
	defaultScrollbackMax = schema.DefaultScrollbackMax
	readBufferSize       = 32 * 1024
)

// Config holds backend settings.
type Config struct {
	// Agents maps agent types to the commands spawned for them. Nil means
	// DefaultAgents.
	Agents map[schema.AgentType]AgentCommand
	// ScrollbackMax caps retained output per session, in bytes.
	ScrollbackMax int
	// WorkingDir is the directory sessions start in when the request does
	// not name one.
	WorkingDir string
}

// Backend spawns and supervises PTY sessions. It implements the workspace
// session backend.
type Backend struct {
	cfg Config
	log pslog.Logger

	mu       sync.Mutex
	order    []schema.SessionID
	sessions map[schema.SessionID]*session
	subs     map[*subscriber]struct{}
	closed   bool
	wg       sync.WaitGroup
}

type session struct {
	mu     sync.Mutex
	info   schema.Session
	cmd    *exec.Cmd
	ptmx   *os.File
	retain *retainBuffer
	done   chan struct{}
}

type subscriber struct {
	ch   chan schema.BackendEvent
	done chan struct{}
}

// New constructs a Backend.
func New(cfg Config, logger pslog.Logger) *Backend {
	if cfg.Agents == nil {
		cfg.Agents = DefaultAgents()
	}
	if cfg.ScrollbackMax <= 0 {
		cfg.ScrollbackMax = defaultScrollbackMax
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Backend{
		cfg:      cfg,
		log:      logger,
		sessions: make(map[schema.SessionID]*session),
		subs:     make(map[*subscriber]struct{}),
	}
}

// Create spawns a new session process on a fresh PTY.
func (b *Backend) Create(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error) {
	agent := req.Agent
	if agent == "" {
		agent = schema.AgentShell
	}
	ac, ok := b.cfg.Agents[agent]
	if !ok {
		return schema.CreateSessionResponse{}, fmt.Errorf("%w: %s", schema.ErrInvalidAgent, agent)
	}
	dir := req.WorkingDir
	if dir == "" {
		dir = b.cfg.WorkingDir
	}

	cmd := exec.Command(ac.Command, ac.Args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return schema.CreateSessionResponse{}, schema.ErrBackendUnavailable
	}
	b.mu.Unlock()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return schema.CreateSessionResponse{}, fmt.Errorf("spawn %s: %w", ac.Command, err)
	}

	s := &session{
		info: schema.Session{
			ID:         schema.SessionID(uuid.NewString()),
			Agent:      agent,
			Branch:     req.Branch,
			WorkingDir: dir,
		},
		cmd:    cmd,
		ptmx:   ptmx,
		retain: newRetainBuffer(b.cfg.ScrollbackMax),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return schema.CreateSessionResponse{}, schema.ErrBackendUnavailable
	}
	b.sessions[s.info.ID] = s
	b.order = append(b.order, s.info.ID)
	b.renumberLocked()
	info := s.info
	b.mu.Unlock()

	b.wg.Add(1)
	go b.pump(s)

	b.log.Debug("session spawned", "session", info.ID, "agent", agent, "command", ac.Command)
	return schema.CreateSessionResponse{Session: info}, nil
}

// Destroy kills a session's process and releases its PTY. The exit event is
// emitted by the reader goroutine once the process is reaped.
func (b *Backend) Destroy(ctx context.Context, id schema.SessionID) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	b.mu.Unlock()
	if !ok {
		return schema.ErrSessionNotFound
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ptmx.Close()
	<-s.done
	return nil
}

// Write forwards input bytes to the session's PTY.
func (b *Backend) Write(ctx context.Context, id schema.SessionID, data []byte) error {
	s, err := b.lookup(id)
	if err != nil {
		return err
	}
	if _, err := s.ptmx.Write(data); err != nil {
		return fmt.Errorf("write session %s: %w", id, err)
	}
	return nil
}

// Resize applies the pane geometry to the session's PTY.
func (b *Backend) Resize(ctx context.Context, id schema.SessionID, cols, rows int) error {
	s, err := b.lookup(id)
	if err != nil {
		return err
	}
	ws := &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
	if err := pty.Setsize(s.ptmx, ws); err != nil {
		return fmt.Errorf("resize session %s: %w", id, err)
	}
	return nil
}

// FetchScrollback returns a snapshot of the session's retained output and
// the stream offset the snapshot ends at. Output events appended before the
// snapshot carry offsets at or below the returned one.
func (b *Backend) FetchScrollback(ctx context.Context, id schema.SessionID) ([]byte, int64, error) {
	s, err := b.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retain.Bytes(), s.retain.End(), nil
}

// List returns the live sessions in pane order.
func (b *Backend) List(ctx context.Context) ([]schema.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]schema.Session, 0, len(b.order))
	for _, id := range b.order {
		if s, ok := b.sessions[id]; ok {
			out = append(out, s.info)
		}
	}
	return out, nil
}

// Subscribe attaches a consumer to the multiplexed event stream. Sends block
// until the consumer receives or cancels, so per-session output order is
// preserved end to end.
func (b *Backend) Subscribe() (<-chan schema.BackendEvent, func()) {
	sub := &subscriber{
		ch:   make(chan schema.BackendEvent),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.done)
		})
	}
	return sub.ch, cancel
}

// Close destroys all sessions and waits for their readers to finish.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	ids := append([]schema.SessionID(nil), b.order...)
	b.mu.Unlock()
	for _, id := range ids {
		_ = b.Destroy(context.Background(), id)
	}
	b.wg.Wait()
	return nil
}

func (b *Backend) lookup(id schema.SessionID) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, schema.ErrSessionNotFound
	}
	return s, nil
}

// pump reads PTY output until EOF, then reaps the process and emits the exit
// event after the session is removed from the live set.
func (b *Backend) pump(s *session) {
	defer b.wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			s.mu.Lock()
			s.retain.Append(data)
			off := s.retain.End()
			s.mu.Unlock()
			b.publish(schema.BackendEvent{
				Type:      schema.BackendOutput,
				SessionID: s.info.ID,
				Data:      data,
				Offset:    off,
			})
		}
		if err != nil {
			break
		}
	}
	exitCode := 0
	if err := s.cmd.Wait(); err != nil {
		exitCode = -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
	}
	_ = s.ptmx.Close()
	b.remove(s.info.ID)
	// Unblock Destroy before the exit publish; a subscriber draining the
	// stream later must not hold up the teardown.
	close(s.done)
	b.publish(schema.BackendEvent{
		Type:      schema.BackendExit,
		SessionID: s.info.ID,
		ExitCode:  exitCode,
	})
	b.log.Debug("session exited", "session", s.info.ID, "code", exitCode)
}

func (b *Backend) remove(id schema.SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[id]; !ok {
		return
	}
	delete(b.sessions, id)
	for i, cur := range b.order {
		if cur == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.renumberLocked()
}

func (b *Backend) renumberLocked() {
	for i, id := range b.order {
		if s, ok := b.sessions[id]; ok {
			s.info.PaneIndex = i
		}
	}
}

func (b *Backend) publish(ev schema.BackendEvent) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		}
	}
}
