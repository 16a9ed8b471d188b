package metrics

import (
	"math"
	"sync/atomic"
)

// Sampling forwards roughly rate of its events to the inner observer.
// Used for per-chunk audio measurements, which arrive ten times a second
// per session.
type Sampling struct {
	inner       Observer
	rate        float64
	sampleEvery uint64
	counter     atomic.Uint64
}

func NewSampling(inner Observer, rate float64) *Sampling {
	if rate > 1 {
		rate = 1
	}
	if rate < 0 {
		rate = 0
	}
	var every uint64
	switch {
	case rate == 0:
		every = 0
	case rate == 1:
		every = 1
	default:
		every = uint64(math.Round(1.0 / rate))
		if every == 0 {
			every = 1
		}
	}
	return &Sampling{inner: inner, rate: rate, sampleEvery: every}
}

func (s *Sampling) Record(ev Event) {
	if s.rate == 0 {
		return
	}
	if s.sampleEvery <= 1 {
		s.inner.Record(ev)
		return
	}
	if s.counter.Add(1)%s.sampleEvery == 0 {
		s.inner.Record(ev)
	}
}
