// Package metrics records operational events from sessions and the callback
// pipeline. Observers are fire-and-forget; recording never blocks a capture
// or receive loop.
package metrics

import "time"

// Event is a single measurement with free-form tags.
type Event struct {
	Name  string
	Time  time.Time
	Value float64
	Tags  map[string]string
}

// New stamps an event with the current time. Tags come in key, value pairs;
// an odd trailing key is dropped.
func New(name string, value float64, tags ...string) Event {
	ev := Event{Name: name, Time: time.Now(), Value: value}
	if len(tags) >= 2 {
		ev.Tags = make(map[string]string, len(tags)/2)
		for i := 0; i+1 < len(tags); i += 2 {
			ev.Tags[tags[i]] = tags[i+1]
		}
	}
	return ev
}

// Observer consumes events.
type Observer interface {
	Record(ev Event)
}

// Noop discards everything. The default when metrics are disabled.
type Noop struct{}

func (Noop) Record(Event) {}
