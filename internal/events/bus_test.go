package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()

	got := make(chan RecordingStoppedEvent, 1)
	unsub := bus.Subscribe(func(e RecordingStoppedEvent) {
		got <- e
	})
	defer unsub()

	bus.Publish(RecordingStoppedEvent{
		Location: "/tmp/Video 2026-01-02 03-04-05.mkv",
		Duration: 2 * time.Second,
	})

	select {
	case e := <-got:
		if e.Duration != 2*time.Second {
			t.Errorf("Duration = %v", e.Duration)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeOnlyMatchingType(t *testing.T) {
	bus := New()

	photo := make(chan PhotoEvent, 1)
	unsub := bus.Subscribe(func(e PhotoEvent) {
		photo <- e
	})
	defer unsub()

	bus.Publish(RecordingStartedEvent{Location: "/tmp/x.mkv"})
	bus.Publish(PhotoEvent{Location: "/tmp/photo.png"})

	select {
	case e := <-photo:
		if e.Location != "/tmp/photo.png" {
			t.Errorf("Location = %q", e.Location)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("photo event not delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	got := make(chan LastVideoEvent, 4)
	unsub := bus.Subscribe(func(e LastVideoEvent) {
		got <- e
	})
	unsub()

	bus.Publish(LastVideoEvent{Location: "/tmp/a.mkv"})

	select {
	case <-got:
		t.Error("event delivered after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnknownHandlerIsNoOp(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(s string) {})
	unsub()
}
