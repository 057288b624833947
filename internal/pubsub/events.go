// Package pubsub provides a generic publish/subscribe event system used to
// fan session notifications out to renderers, debug panes and tests.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	ModeChangedEvent     EventType = "mode_changed"
	ViewChangedEvent     EventType = "view_changed"
	RecordingEvent       EventType = "macro_recording"
	CommandLineEvent     EventType = "command_line"
	ConfigReloadedEvent  EventType = "config_reloaded"
	SessionClosedEvent   EventType = "session_closed"
	LogEntryEvent        EventType = "log_entry"
	DispatchFailureEvent EventType = "dispatch_failure"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, types ...EventType) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
