package ptybackend

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pkt.systems/gridmux/schema"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Config{
		Agents: map[schema.AgentType]AgentCommand{
			"sleeper": {Command: "/bin/sh", Args: []string{"-c", "printf hello && sleep 60"}},
		},
		ScrollbackMax: 1024,
	}, nil)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func waitForOutput(t *testing.T, events <-chan schema.BackendEvent, id schema.SessionID, want string) {
	t.Helper()
	var got []byte
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != schema.BackendOutput || ev.SessionID != id {
				continue
			}
			got = append(got, ev.Data...)
			if bytes.Contains(got, []byte(want)) {
				return
			}
		case <-deadline:
			t.Fatalf("output %q never arrived; got %q", want, got)
		}
	}
}

func TestBackendSessionLifecycle(t *testing.T) {
	b := newTestBackend(t)
	events, cancel := b.Subscribe()
	defer cancel()

	resp, err := b.Create(context.Background(), schema.CreateSessionRequest{Agent: "sleeper"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := resp.Session.ID
	if id == "" || resp.Session.PaneIndex != 0 {
		t.Fatalf("session = %+v", resp.Session)
	}

	waitForOutput(t, events, id, "hello")

	history, end, err := b.FetchScrollback(context.Background(), id)
	if err != nil {
		t.Fatalf("FetchScrollback failed: %v", err)
	}
	if !bytes.Contains(history, []byte("hello")) {
		t.Fatalf("scrollback = %q, want it to contain hello", history)
	}
	if end < int64(len(history)) {
		t.Fatalf("snapshot end offset %d below retained length %d", end, len(history))
	}

	sessions, err := b.List(context.Background())
	if err != nil || len(sessions) != 1 {
		t.Fatalf("List = %v, %v", sessions, err)
	}

	if err := b.Destroy(context.Background(), id); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == schema.BackendExit && ev.SessionID == id {
				sessions, _ := b.List(context.Background())
				if len(sessions) != 0 {
					t.Fatalf("session survived destroy: %v", sessions)
				}
				return
			}
		case <-deadline:
			t.Fatalf("exit event never arrived")
		}
	}
}

func TestBackendRejectsUnknownAgent(t *testing.T) {
	b := newTestBackend(t)
	if _, err := b.Create(context.Background(), schema.CreateSessionRequest{Agent: "nope"}); err == nil {
		t.Fatalf("expected error for unknown agent")
	}
}

func TestBackendUnknownSessionOps(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	if err := b.Write(ctx, "ghost", []byte("x")); err != schema.ErrSessionNotFound {
		t.Fatalf("Write err = %v", err)
	}
	if err := b.Resize(ctx, "ghost", 80, 24); err != schema.ErrSessionNotFound {
		t.Fatalf("Resize err = %v", err)
	}
	if _, _, err := b.FetchScrollback(ctx, "ghost"); err != schema.ErrSessionNotFound {
		t.Fatalf("FetchScrollback err = %v", err)
	}
	if err := b.Destroy(ctx, "ghost"); err != schema.ErrSessionNotFound {
		t.Fatalf("Destroy err = %v", err)
	}
}
