package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewPairsTags(t *testing.T) {
	ev := New("job_submit", 1, "provider", "gladia", "dangling")
	if ev.Tags["provider"] != "gladia" {
		t.Fatalf("tags = %v", ev.Tags)
	}
	if _, ok := ev.Tags["dangling"]; ok {
		t.Fatal("odd trailing key should be dropped")
	}
	if ev.Time.IsZero() {
		t.Fatal("event not timestamped")
	}
}

func TestJSONLOutput(t *testing.T) {
	var buf bytes.Buffer
	o := NewJSONL(&buf)
	o.Record(New("session_start", 1, "session_id", "s1"))
	line := buf.String()
	for _, want := range []string{`"name":"session_start"`, `"session_id":"s1"`, `"value":1`} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %q", want, line)
		}
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := observerFunc(func(Event) { <-block })
	a := NewAsync(inner, 1)
	for i := 0; i < 10; i++ {
		a.Record(Event{Name: "x"})
	}
	if a.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}
	close(block)
	a.Close()
}

func TestAsyncDrainsBeforeExit(t *testing.T) {
	mem := NewMemory()
	a := NewAsync(mem, 8)
	a.Record(New("audio_chunk", 1))
	a.Close()
	deadline := time.After(time.Second)
	for len(mem.Events()) == 0 {
		select {
		case <-deadline:
			t.Fatal("event never drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSamplingRate(t *testing.T) {
	mem := NewMemory()
	s := NewSampling(mem, 0.1)
	for i := 0; i < 100; i++ {
		s.Record(Event{Name: "audio_chunk"})
	}
	if got := len(mem.Events()); got != 10 {
		t.Fatalf("sampled %d of 100 at rate 0.1", got)
	}
	zero := NewSampling(mem, 0)
	zero.Record(Event{Name: "audio_chunk"})
	if got := len(mem.Events()); got != 10 {
		t.Fatalf("rate 0 recorded an event, total %d", got)
	}
}

type observerFunc func(Event)

func (f observerFunc) Record(ev Event) { f(ev) }
