package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/murmurlabs/verbatim/pkg/configutil"
)

// Async decouples recording from the inner observer. Events are dropped
// rather than blocking when the buffer is full; the audio pump must never
// stall on a slow metrics sink.
type Async struct {
	inner   Observer
	ch      chan Event
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
}

func NewAsync(inner Observer, buffer int) *Async {
	buffer = configutil.IntValue(buffer, 256)
	a := &Async{inner: inner, ch: make(chan Event, buffer)}
	go a.loop()
	return a
}

func (a *Async) Record(ev Event) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped counts events discarded because the buffer was full.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting events; the drain goroutine exits once the buffer
// empties.
func (a *Async) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
	})
}

func (a *Async) loop() {
	for ev := range a.ch {
		a.inner.Record(ev)
	}
}
