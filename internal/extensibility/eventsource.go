package extensibility

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/primitives"
)

// EventSource supplies events to Drive. A closed channel ends the run.
type EventSource interface {
	Events() <-chan primitives.Event
}

// ChannelEventSource is an EventSource backed by a caller-owned channel.
type ChannelEventSource struct {
	ch chan primitives.Event
}

// NewChannelEventSource wraps ch. The caller closes it when done.
func NewChannelEventSource(ch chan primitives.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

// Events returns the receive-only channel.
func (s *ChannelEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// ScriptEventSource replays a fixed list of events and then closes.
type ScriptEventSource struct {
	ch chan primitives.Event
}

// NewScriptEventSource queues events in order.
func NewScriptEventSource(events []primitives.Event) *ScriptEventSource {
	ch := make(chan primitives.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &ScriptEventSource{ch: ch}
}

// Events returns the queued events.
func (s *ScriptEventSource) Events() <-chan primitives.Event {
	return s.ch
}

var errEmptyEventName = errors.New("event name is empty")

// LoadScript reads a YAML (or JSON) list of {event, payload} items, for
// example:
//
//	[{event: ANSWER, payload: {q1: {value: baz}}}, {event: NEXT}]
func LoadScript(r io.Reader) ([]primitives.Event, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode event script: %w", err)
	}

	events := make([]primitives.Event, 0, len(raw))
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &events,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode event script: %w", err)
	}
	for i, ev := range events {
		if ev.Type == "" {
			return nil, fmt.Errorf("event script item %d: %w", i, errEmptyEventName)
		}
	}
	return events, nil
}

// Drive sends every event from src into e until src closes or ctx is done.
// observe, if non-nil, sees each event with the snapshot it produced.
// The engine must already be started or restored.
func Drive[C any](ctx context.Context, e *core.Engine[C], src EventSource, observe func(primitives.Event, core.Snapshot[C])) error {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s, err := e.Send(ev.Type, ev.Data)
			if err != nil {
				return fmt.Errorf("send %q: %w", ev.Type, err)
			}
			if observe != nil {
				observe(ev, s)
			}
		}
	}
}
