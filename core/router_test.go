package core

import (
	"context"
	"testing"
	"time"

	"pkt.systems/gridmux/schema"
)

func startRouter(t *testing.T, r *Router) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("router did not stop")
		}
	})
	return cancel
}

func TestRouterDispatchesOutputInOrder(t *testing.T) {
	fb := newFakeBackend()
	r := NewRouter(fb, nil)
	got := make(chan []byte, 8)
	r.Register("s1", func(data []byte, off int64) { got <- data })
	startRouter(t, r)

	for _, chunk := range []string{"one", "two", "three"} {
		fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "s1", Data: []byte(chunk)}
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case data := <-got:
			if string(data) != want {
				t.Fatalf("chunk = %q, want %q", data, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("missing chunk %q", want)
		}
	}
}

func TestRouterDropsEventsForUnknownSessions(t *testing.T) {
	fb := newFakeBackend()
	r := NewRouter(fb, nil)
	got := make(chan []byte, 8)
	r.Register("known", func(data []byte, off int64) { got <- data })
	startRouter(t, r)

	fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "ghost", Data: []byte("lost")}
	fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "known", Data: []byte("kept")}

	select {
	case data := <-got:
		if string(data) != "kept" {
			t.Fatalf("delivered %q, want %q", data, "kept")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("known session chunk never arrived")
	}
	select {
	case data := <-got:
		t.Fatalf("unexpected extra delivery %q", data)
	default:
	}
}

func TestRouterRegisterReplacesHandler(t *testing.T) {
	fb := newFakeBackend()
	r := NewRouter(fb, nil)
	first := make(chan []byte, 1)
	second := make(chan []byte, 1)
	r.Register("s1", func(data []byte, off int64) { first <- data })
	r.Register("s1", func(data []byte, off int64) { second <- data })
	startRouter(t, r)

	fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "s1", Data: []byte("x")}
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatalf("replacement handler never ran")
	}
	select {
	case <-first:
		t.Fatalf("replaced handler still receiving")
	default:
	}
}

func TestRouterUnregisterStopsDelivery(t *testing.T) {
	fb := newFakeBackend()
	r := NewRouter(fb, nil)
	got := make(chan []byte, 1)
	other := make(chan []byte, 1)
	r.Register("gone", func(data []byte, off int64) { got <- data })
	r.Unregister("gone")
	r.Register("live", func(data []byte, off int64) { other <- data })
	startRouter(t, r)

	fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "gone", Data: []byte("x")}
	fb.events <- schema.BackendEvent{Type: schema.BackendOutput, SessionID: "live", Data: []byte("y")}
	select {
	case <-other:
	case <-time.After(2 * time.Second):
		t.Fatalf("live session chunk never arrived")
	}
	select {
	case <-got:
		t.Fatalf("unregistered handler still receiving")
	default:
	}
}

func TestRouterReportsExit(t *testing.T) {
	fb := newFakeBackend()
	r := NewRouter(fb, nil)
	type exit struct {
		id   schema.SessionID
		code int
	}
	exits := make(chan exit, 1)
	r.SetExitFunc(func(id schema.SessionID, code int) { exits <- exit{id, code} })
	startRouter(t, r)

	fb.events <- schema.BackendEvent{Type: schema.BackendExit, SessionID: "s1", ExitCode: 3}
	select {
	case got := <-exits:
		if got.id != "s1" || got.code != 3 {
			t.Fatalf("exit = %+v, want s1/3", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("exit callback never ran")
	}
}
