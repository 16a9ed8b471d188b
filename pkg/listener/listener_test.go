package listener

import (
	"sync"
	"testing"
	"time"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

type fakeStream struct {
	mu            sync.Mutex
	events        chan stream.Event
	controls      []stream.Control
	finalizeCount int
	closed        bool
}

func newFakeStream(finalizeCount int) *fakeStream {
	return &fakeStream{events: make(chan stream.Event, 16), finalizeCount: finalizeCount}
}

func (f *fakeStream) SendAudio(pcm []byte) error { return nil }

func (f *fakeStream) SendControl(c stream.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, c)
	return nil
}

func (f *fakeStream) sentControls() []stream.Control {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stream.Control(nil), f.controls...)
}

func (f *fakeStream) Events() <-chan stream.Event { return f.events }
func (f *fakeStream) ExpectedFinalizeCount() int  { return f.finalizeCount }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func transcript(text string, fromFinalize bool) stream.TranscriptEvent {
	return stream.TranscriptEvent{
		Alternatives: []stream.Alternative{{
			Transcript: text,
			Words:      []stream.Word{{Word: text, Start: 1, End: 2}},
		}},
		IsFinal:      true,
		FromFinalize: fromFinalize,
	}
}

func collect(t *testing.T, l *Listener, n int) []stream.Event {
	t.Helper()
	out := make([]stream.Event, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-l.Events():
			if !ok {
				t.Fatalf("events closed after %d of %d", len(out), n)
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestTaggingAndOrdering(t *testing.T) {
	fs := newFakeStream(1)
	l, err := New(Config{
		SessionID: "s1",
		Stream:    fs,
		Offset:    func() time.Duration { return 10 * time.Second },
		Metadata:  map[string]string{"channel_mode": "mic_and_speaker"},
	})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.Start()

	fs.events <- transcript("one", false)
	fs.events <- transcript("two", false)

	got := collect(t, l, 2)
	first := got[0].(stream.TranscriptEvent)
	if first.Alternatives[0].Transcript != "one" {
		t.Fatalf("order not preserved: %+v", got)
	}
	w := first.Alternatives[0].Words[0]
	if w.Start != 11 || w.End != 12 {
		t.Fatalf("offset not applied: %+v", w)
	}
	if first.Metadata["channel_mode"] != "mic_and_speaker" {
		t.Fatalf("metadata not attached: %+v", first.Metadata)
	}

	l.Shutdown()
	<-l.Done()
}

func TestDrainStopsAtExpectedCount(t *testing.T) {
	fs := newFakeStream(2)
	l, err := New(Config{Stream: fs, DrainTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.Start()

	l.Shutdown()
	// Wait for the finalize control before answering.
	for len(fs.sentControls()) == 0 {
		time.Sleep(time.Millisecond)
	}
	if fs.sentControls()[0] != stream.ControlFinalize {
		t.Fatalf("expected finalize control, got %v", fs.sentControls())
	}

	fs.events <- transcript("flush-a", true)
	fs.events <- transcript("flush-b", true)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatalf("drain must stop at expected finalize count")
	}

	got := collect(t, l, 2)
	for _, ev := range got {
		if !ev.(stream.TranscriptEvent).FromFinalize {
			t.Fatalf("drained response lost its tag: %+v", ev)
		}
	}
}

func TestDrainTimesOut(t *testing.T) {
	fs := newFakeStream(3)
	l, err := New(Config{Stream: fs, DrainTimeout: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.Start()
	l.Shutdown()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatalf("drain must give up at the timeout")
	}
}

func TestWatchdogEmitsTimeout(t *testing.T) {
	fs := newFakeStream(1)
	l, err := New(Config{Stream: fs, Watchdog: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.Start()

	got := collect(t, l, 1)
	if _, ok := got[0].(stream.TimeoutEvent); !ok {
		t.Fatalf("expected timeout signal, got %T", got[0])
	}
	<-l.Done()
	if !fs.wasClosed() {
		// The closer is detached; give it a beat.
		time.Sleep(50 * time.Millisecond)
		if !fs.wasClosed() {
			t.Fatalf("connection not torn down after timeout")
		}
	}
}

func TestTerminalEventEndsLoop(t *testing.T) {
	fs := newFakeStream(1)
	l, err := New(Config{Stream: fs})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.Start()

	fs.events <- transcript("tail", false)
	fs.events <- stream.EndedEvent{}

	got := collect(t, l, 2)
	if _, ok := got[1].(stream.EndedEvent); !ok {
		t.Fatalf("terminal signal not forwarded: %T", got[1])
	}
	select {
	case _, ok := <-l.Events():
		if ok {
			t.Fatalf("events after terminal signal")
		}
	case <-time.After(time.Second):
		t.Fatalf("events channel must close after terminal signal")
	}
}
