package core

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/gridmux/schema"
)

// fakeBackend is an in-memory Backend for tests. FetchScrollback can be
// gated to hold an attach mid-fetch; Write can be gated per session to
// model a PTY that stops draining input.
type fakeBackend struct {
	mu          sync.Mutex
	sessions    []schema.Session
	scrollback  map[schema.SessionID][]byte
	offsets     map[schema.SessionID]int64
	writes      [][]byte
	writeIDs    []schema.SessionID
	resizes     map[schema.SessionID][2]int
	destroyed   []schema.SessionID
	nextID      int
	fetchGate   chan struct{}
	fetchErr    error
	writeGate   chan struct{}
	writeGateID schema.SessionID
	events      chan schema.BackendEvent
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		scrollback: make(map[schema.SessionID][]byte),
		offsets:    make(map[schema.SessionID]int64),
		resizes:    make(map[schema.SessionID][2]int),
		events:     make(chan schema.BackendEvent, 64),
	}
}

func (f *fakeBackend) Create(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	session := schema.Session{
		ID:         schema.SessionID(fmt.Sprintf("s%d", f.nextID)),
		PaneIndex:  len(f.sessions),
		Agent:      req.Agent,
		Branch:     req.Branch,
		WorkingDir: req.WorkingDir,
	}
	f.sessions = append(f.sessions, session)
	return schema.CreateSessionResponse{Session: session}, nil
}

func (f *fakeBackend) Destroy(ctx context.Context, id schema.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sessions {
		if s.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			f.destroyed = append(f.destroyed, id)
			return nil
		}
	}
	return schema.ErrSessionNotFound
}

func (f *fakeBackend) Write(ctx context.Context, id schema.SessionID, data []byte) error {
	f.mu.Lock()
	gate := f.writeGate
	gateID := f.writeGateID
	f.mu.Unlock()
	if gate != nil && gateID == id {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			f.writes = append(f.writes, append([]byte(nil), data...))
			f.writeIDs = append(f.writeIDs, id)
			return nil
		}
	}
	return schema.ErrSessionNotFound
}

func (f *fakeBackend) Resize(ctx context.Context, id schema.SessionID, cols, rows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes[id] = [2]int{cols, rows}
	return nil
}

func (f *fakeBackend) FetchScrollback(ctx context.Context, id schema.SessionID) ([]byte, int64, error) {
	f.mu.Lock()
	gate := f.fetchGate
	fetchErr := f.fetchErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fetchErr != nil {
		return nil, 0, fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	end := f.offsets[id]
	if end == 0 {
		end = int64(len(f.scrollback[id]))
	}
	return append([]byte(nil), f.scrollback[id]...), end, nil
}

func (f *fakeBackend) List(ctx context.Context) ([]schema.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]schema.Session(nil), f.sessions...), nil
}

func (f *fakeBackend) Subscribe() (<-chan schema.BackendEvent, func()) {
	return f.events, func() {}
}

func (f *fakeBackend) recordedWrites() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

// appendOutput models the real backend's append-then-publish: the chunk
// lands in the scrollback snapshot before the event carrying it exists.
func (f *fakeBackend) appendOutput(id schema.SessionID, data string) schema.BackendEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollback[id] = append(f.scrollback[id], data...)
	f.offsets[id] = int64(len(f.scrollback[id]))
	return schema.BackendEvent{Type: schema.BackendOutput, SessionID: id, Data: []byte(data), Offset: f.offsets[id]}
}

func outputEvent(id schema.SessionID, data string, off int64) schema.BackendEvent {
	return schema.BackendEvent{Type: schema.BackendOutput, SessionID: id, Data: []byte(data), Offset: off}
}
