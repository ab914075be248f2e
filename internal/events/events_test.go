package events

import (
	"testing"
	"time"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Type: TypeCreated, Instance: "i-1", Name: "web"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Type != TypeCreated || ev.Instance != "i-1" {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.Time.IsZero() {
				t.Error("expected Publish to stamp a time")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(Event{Type: TypeStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBus_CloseClosesChannels(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel to be closed")
	}

	// Publish and a second Close after closing must not panic.
	bus.Publish(Event{Type: TypeStopped})
	bus.Close()

	if _, ok := <-bus.Subscribe(); ok {
		t.Error("expected Subscribe after Close to return a closed channel")
	}
}
