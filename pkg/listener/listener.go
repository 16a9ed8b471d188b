// Package listener owns one upstream live connection for a session: it
// drives the receive loop, stamps session-relative timing and metadata onto
// every response, and runs the finalize handshake on shutdown.
package listener

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/murmurlabs/verbatim/pkg/configutil"
	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

const (
	DefaultDrainTimeout = 5 * time.Second
	DefaultWatchdog     = 30 * time.Second
)

// Config configures a Listener.
type Config struct {
	SessionID string
	Stream    provider.LiveStream
	// Offset supplies the shift added to every word timing so consumers see
	// session-relative clocks. Callers whose upstream clock starts at
	// connection open pass the session-start to connection-open delta.
	Offset func() time.Duration
	// Metadata is attached to every transcript response.
	Metadata map[string]string
	// DrainTimeout bounds the finalize drain. Defaults to 5s.
	DrainTimeout time.Duration
	// Watchdog is the per-response read timeout. Defaults to 30s.
	Watchdog time.Duration
	Logger   *slog.Logger
}

// Listener is the receive-loop actor. Exactly one per upstream connection.
type Listener struct {
	cfg      Config
	events   chan stream.Event
	shutdown chan struct{}
	detached chan struct{}
	done     chan struct{}
	shutOnce sync.Once
	detOnce  sync.Once
	logger   *slog.Logger
}

// New validates the config. The loop starts on Start.
func New(cfg Config) (*Listener, error) {
	if cfg.Stream == nil {
		return nil, errorsx.Wrap(errors.New("listener requires an open stream"), errorsx.ReasonSTTStream)
	}
	if cfg.Offset == nil {
		cfg.Offset = func() time.Duration { return 0 }
	}
	cfg.DrainTimeout = configutil.DurationValue(cfg.DrainTimeout, DefaultDrainTimeout)
	cfg.Watchdog = configutil.DurationValue(cfg.Watchdog, DefaultWatchdog)
	return &Listener{
		cfg:      cfg,
		events:   make(chan stream.Event, 64),
		shutdown: make(chan struct{}),
		detached: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logging.NewSessionLogger(cfg.Logger, "listener", cfg.SessionID),
	}, nil
}

// Start launches the receive loop.
func (l *Listener) Start() {
	go l.run()
}

// Events yields tagged responses in receipt order. Closed after a terminal
// signal.
func (l *Listener) Events() <-chan stream.Event { return l.events }

// Shutdown requests finalize-then-drain. Non-blocking and idempotent.
func (l *Listener) Shutdown() {
	l.shutOnce.Do(func() { close(l.shutdown) })
}

// Detach marks the consumer gone, letting the loop terminate instead of
// blocking on a forward. Idempotent.
func (l *Listener) Detach() {
	l.detOnce.Do(func() { close(l.detached) })
}

// Done is closed once the loop has exited and the connection is being torn
// down.
func (l *Listener) Done() <-chan struct{} { return l.done }

func (l *Listener) run() {
	defer close(l.done)
	defer close(l.events)
	defer l.detachClose()

	watchdog := time.NewTimer(l.cfg.Watchdog)
	defer watchdog.Stop()

	for {
		select {
		case <-l.shutdown:
			l.finalizeAndDrain()
			return
		case <-l.detached:
			l.logger.Debug("consumer detached")
			return
		case <-watchdog.C:
			l.logger.Warn("read watchdog elapsed")
			l.forward(stream.TimeoutEvent{})
			return
		case ev, ok := <-l.cfg.Stream.Events():
			if !ok {
				return
			}
			if !l.forward(l.tag(ev)) {
				return
			}
			if isTerminal(ev) {
				return
			}
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(l.cfg.Watchdog)
		}
	}
}

// finalizeAndDrain requests a last flush and keeps forwarding until the
// expected number of finalize-tagged responses arrived or the drain window
// closed.
func (l *Listener) finalizeAndDrain() {
	if err := l.cfg.Stream.SendControl(stream.ControlFinalize); err != nil {
		l.logger.Warn("finalize send failed", slog.String("error", err.Error()))
		return
	}

	want := l.cfg.Stream.ExpectedFinalizeCount()
	got := 0
	deadline := time.NewTimer(l.cfg.DrainTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			l.logger.Debug("drain timeout", slog.Int("flushed", got))
			return
		case <-l.detached:
			return
		case ev, ok := <-l.cfg.Stream.Events():
			if !ok {
				return
			}
			if !l.forward(l.tag(ev)) {
				return
			}
			if isTerminal(ev) {
				return
			}
			if te, isTx := ev.(stream.TranscriptEvent); isTx && te.FromFinalize {
				got++
				if got >= want {
					l.logger.Debug("drain complete", slog.Int("flushed", got))
					return
				}
			}
		}
	}
}

// tag applies the session offset and metadata. Every response passes through
// here exactly once, on whichever loop branch received it.
func (l *Listener) tag(ev stream.Event) stream.Event {
	te, ok := ev.(stream.TranscriptEvent)
	if !ok {
		return ev
	}
	return te.WithOffset(l.cfg.Offset().Seconds()).WithMetadata(l.cfg.Metadata)
}

func (l *Listener) forward(ev stream.Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.detached:
		return false
	}
}

func isTerminal(ev stream.Event) bool {
	switch ev.(type) {
	case stream.EndedEvent, stream.ErrorEvent, stream.TimeoutEvent:
		return true
	default:
		return false
	}
}

// detachClose tears the connection down without blocking the loop exit path.
func (l *Listener) detachClose() {
	go func() {
		if err := l.cfg.Stream.Close(); err != nil {
			l.logger.Warn("connection close failed", slog.String("error", err.Error()))
		}
	}()
}
