package events

import (
	"github.com/kelindar/event"
)

// Bus wraps the kelindar/event dispatcher for application-wide
// broadcasting. Handlers run asynchronously on the dispatcher's pool.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers an event to all matching subscribers.
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type, so dispatch
	// through a type switch.
	switch e := ev.(type) {
	case RecordingStartedEvent:
		event.Publish(b.dispatcher, e)
	case RecordingStoppedEvent:
		event.Publish(b.dispatcher, e)
	case VideoPreviewEvent:
		event.Publish(b.dispatcher, e)
	case PhotoEvent:
		event.Publish(b.dispatcher, e)
	case LastVideoEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects the
// events it receives. Returns an unsubscribe function. Unrecognized
// handler types get a no-op unsubscribe.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(RecordingStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(VideoPreviewEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PhotoEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LastVideoEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
