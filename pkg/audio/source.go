package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/murmurlabs/verbatim/pkg/configutil"
	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/logging"
)

// Error is a capture failure. Fatal errors end the session; recoverable ones
// substitute silence so timing stays aligned.
type Error struct {
	Message string
	Fatal   bool
}

func (e Error) Error() string { return e.Message }

// IsFatal reports whether err carries a fatal capture failure. Unknown
// errors count as fatal.
func IsFatal(err error) bool {
	if e, ok := err.(Error); ok {
		return e.Fatal
	}
	return true
}

// Device is one capture handle. Read fills buf completely or reports why it
// could not; the handle is exclusive to one Source.
type Device interface {
	Name() string
	Read(buf []float32) error
	Close() error
}

// Config configures a Source.
type Config struct {
	Mode    ChannelMode
	Mic     Device
	Speaker Device
	// Cadence is the emission interval. Defaults to 100ms.
	Cadence time.Duration
	Logger  *slog.Logger
}

// Source captures per the channel mode and emits Chunks at a fixed cadence.
type Source struct {
	cfg       Config
	frameSize int
	chunks    chan Chunk
	errs      chan Error
	quit      chan struct{}
	done      chan struct{}
	micMuted  atomic.Bool
	stopOnce  sync.Once
	logger    *slog.Logger
}

// NewSource validates the device set against the mode. Capture starts on
// Start.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Mode.UsesMic() && cfg.Mic == nil {
		return nil, errorsx.Wrap(fmt.Errorf("mode %s requires a mic device", cfg.Mode), errorsx.ReasonAudioDevice)
	}
	if cfg.Mode.UsesSpeaker() && cfg.Speaker == nil {
		return nil, errorsx.Wrap(fmt.Errorf("mode %s requires a speaker device", cfg.Mode), errorsx.ReasonAudioDevice)
	}
	cfg.Cadence = configutil.DurationValue(cfg.Cadence, 100*time.Millisecond)
	return &Source{
		cfg:       cfg,
		frameSize: int(float64(SampleRate) * cfg.Cadence.Seconds()),
		chunks:    make(chan Chunk, 8),
		errs:      make(chan Error, 4),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logging.NewComponentLogger(cfg.Logger, "audio_source"),
	}, nil
}

// Start launches the capture loop.
func (s *Source) Start() {
	go s.run()
}

// Chunks yields captured frames in cadence order. Closed when capture ends.
func (s *Source) Chunks() <-chan Chunk { return s.chunks }

// Errors yields capture failures. Fatal errors are followed by the chunk
// channel closing.
func (s *Source) Errors() <-chan Error { return s.errs }

// SetMicMute zeroes emitted mic samples without stopping capture.
func (s *Source) SetMicMute(muted bool) { s.micMuted.Store(muted) }

func (s *Source) GetMicMute() bool { return s.micMuted.Load() }

// GetMicDevice names the mic handle for diagnostics, empty when the mode has
// no mic.
func (s *Source) GetMicDevice() string {
	if s.cfg.Mic == nil {
		return ""
	}
	return s.cfg.Mic.Name()
}

// Stop ends capture. Safe to call more than once; returns after the loop has
// exited.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Source) run() {
	defer close(s.done)
	defer close(s.chunks)
	defer s.closeDevices()

	ticker := time.NewTicker(s.cfg.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			chunk, fatal := s.capture()
			if fatal {
				return
			}
			select {
			case s.chunks <- chunk:
			case <-s.quit:
				return
			}
		}
	}
}

// capture reads one frame per used device. A recoverable failure substitutes
// silence; a fatal one reports and stops.
func (s *Source) capture() (Chunk, bool) {
	var chunk Chunk
	if s.cfg.Mode.UsesMic() {
		buf, fatal := s.read(s.cfg.Mic)
		if fatal {
			return Chunk{}, true
		}
		if s.micMuted.Load() {
			buf = Silence(s.frameSize)
		}
		chunk.Mic = buf
	}
	if s.cfg.Mode.UsesSpeaker() {
		buf, fatal := s.read(s.cfg.Speaker)
		if fatal {
			return Chunk{}, true
		}
		chunk.Speaker = buf
	}
	return chunk, false
}

func (s *Source) read(dev Device) ([]float32, bool) {
	buf := make([]float32, s.frameSize)
	err := dev.Read(buf)
	if err == nil {
		return buf, false
	}
	fatal := IsFatal(err)
	s.report(Error{Message: dev.Name() + ": " + err.Error(), Fatal: fatal})
	if fatal {
		return nil, true
	}
	s.logger.Warn("capture underrun, substituting silence",
		slog.String("device", dev.Name()),
		slog.String("error", err.Error()))
	return Silence(s.frameSize), false
}

func (s *Source) report(e Error) {
	select {
	case s.errs <- e:
	default:
		s.logger.Warn("error channel full, dropping", slog.String("error", e.Message))
	}
}

func (s *Source) closeDevices() {
	for _, dev := range []Device{s.cfg.Mic, s.cfg.Speaker} {
		if dev == nil {
			continue
		}
		if err := dev.Close(); err != nil {
			s.logger.Warn("device close failed",
				slog.String("device", dev.Name()),
				slog.String("error", err.Error()))
		}
	}
}
