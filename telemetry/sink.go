package telemetry

import "context"

// Sink receives engine events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event)

// Emit calls f(ctx, event).
func (f SinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) {})

type multi []Sink

// Multi returns a sink that forwards each event to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return Nop
	case 1:
		return m[0]
	}
	return m
}

func (m multi) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}
