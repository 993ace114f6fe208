// Package wait provides helpers for collecting events from a hub
// subscription within a timeout
package wait

import (
	"testing"
	"time"

	"github.com/orchestra-dev/orchestra/internal/events"
)

type (
	Wait struct {
		t       *testing.T
		sub     *events.Subscription
		timeout time.Duration
	}

	// Filter selects the events a waiter collects
	Filter func(*events.Event) bool
)

const DefaultTimeout = time.Second * 5

// On creates a waiter over a hub subscription
func On(t *testing.T, sub *events.Subscription) *Wait {
	return &Wait{
		t:       t,
		sub:     sub,
		timeout: DefaultTimeout,
	}
}

// WithTimeout returns a copy of the waiter with a different timeout
func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for count matching events from the subscription
func (w *Wait) ForEvents(count int, filter Filter) []*events.Event {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	var matched []*events.Event
	for len(matched) < count {
		select {
		case ev, ok := <-w.sub.Receive():
			if !ok {
				w.t.Fatalf("subscription closed after %d of %d events",
					len(matched), count)
				return matched
			}
			if filter == nil || filter(ev) {
				matched = append(matched, ev)
			}
		case <-deadline.C:
			w.t.Fatalf("timed out after %d of %d events",
				len(matched), count)
			return matched
		}
	}
	return matched
}

// ForType waits for a single event of the given type
func (w *Wait) ForType(et events.EventType) *events.Event {
	w.t.Helper()
	matched := w.ForEvents(1, func(ev *events.Event) bool {
		return ev.Type == et
	})
	return matched[0]
}
