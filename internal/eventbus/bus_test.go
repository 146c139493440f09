package eventbus

import (
	"sync"
	"testing"
	"time"

	"pkt.systems/gridmux/schema"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnWorkspaceEvent(schema.WorkspaceEvent{Type: schema.WorkspaceMode, SessionID: "s1"})

	select {
	case ev := <-ch:
		if ev.Type != schema.WorkspaceMode || ev.SessionID != "s1" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never arrived")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event on cancelled subscription")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed on unsubscribe")
	}
}

func TestBusCancelDuringPublish(t *testing.T) {
	bus := New(nil)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				bus.OnWorkspaceEvent(schema.WorkspaceEvent{Type: schema.WorkspaceOutput})
			}
		}
	}()

	// Detaching clients while events flow must never panic the publisher.
	for i := 0; i < 200; i++ {
		ch, cancel := bus.Subscribe()
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for range ch {
			}
		}()
		cancel()
		cancel()
		<-drained
	}
	close(stop)
	wg.Wait()
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := New(nil)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			bus.OnWorkspaceEvent(schema.WorkspaceEvent{Type: schema.WorkspaceOutput})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}
