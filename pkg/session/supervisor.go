package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/murmurlabs/verbatim/pkg/audio"
	"github.com/murmurlabs/verbatim/pkg/configutil"
	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/listener"
	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/metrics"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/redact"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

// DialFunc opens the upstream live connection for a session.
type DialFunc func(ctx context.Context, params Params, mode audio.ChannelMode) (provider.LiveStream, error)

// OpenDevicesFunc supplies the capture handles for a mode. Either return may
// be nil when the mode does not use that side.
type OpenDevicesFunc func(mode audio.ChannelMode) (mic, speaker audio.Device, err error)

// Config configures a Supervisor.
type Config struct {
	Runtime Runtime
	// Provider forces a backend; empty picks the first live-capable one
	// serving the requested languages.
	Provider    provider.Name
	OpenDevices OpenDevicesFunc
	// Dial overrides upstream dialing; defaults to the registry.
	Dial         DialFunc
	DrainTimeout time.Duration
	Watchdog     time.Duration
	Cadence      time.Duration
	Metrics      metrics.Observer
	Logger       *slog.Logger
}

// Supervisor is the per-session state machine. It owns the audio source, the
// listener and the recorder, and reports everything through the runtime
// boundary. One session at a time.
type Supervisor struct {
	cfg Config

	// lifecycle serializes Start, Stop and child-failure teardown so a stop
	// arriving mid bring-up waits for the children to exist before tearing
	// them down. Never acquired while holding mu.
	lifecycle sync.Mutex

	mu       sync.Mutex
	state    State
	degraded bool
	sctx     Context
	source   *audio.Source
	lst      *listener.Listener
	stream   provider.LiveStream
	recorder *Recorder
	pumps    sync.WaitGroup

	chunkMetrics *metrics.Sampling
	logger       *slog.Logger
}

// NewSupervisor validates the config.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("session: supervisor requires a runtime")
	}
	if cfg.OpenDevices == nil {
		return nil, errors.New("session: supervisor requires a device opener")
	}
	if cfg.Dial == nil {
		cfg.Dial = registryDial(cfg.Provider)
	}
	cfg.DrainTimeout = configutil.DurationValue(cfg.DrainTimeout, listener.DefaultDrainTimeout)
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	return &Supervisor{
		cfg: cfg,
		// Chunks arrive ten times a second; one in fifty is plenty.
		chunkMetrics: metrics.NewSampling(cfg.Metrics, 0.02),
		logger:       logging.NewComponentLogger(cfg.Logger, "session"),
	}, nil
}

// registryDial builds a dialer that picks an adapter — the forced name when
// given, otherwise the first live-capable one serving the requested
// languages — and opens its stream.
func registryDial(forced provider.Name) DialFunc {
	return func(ctx context.Context, params Params, mode audio.ChannelMode) (provider.LiveStream, error) {
		var (
			ls provider.LiveStreamer
			ok bool
		)
		if forced != "" {
			ls, ok = provider.Live(forced)
			if !ok {
				return nil, errorsx.Wrap(fmt.Errorf("%s has no live connection", forced), errorsx.ReasonSTTConnect)
			}
		} else {
			ls, ok = provider.PickLive(params.Languages)
			if !ok {
				return nil, errorsx.Wrap(fmt.Errorf("no live backend serves %v", params.Languages), errorsx.ReasonSTTLanguage)
			}
		}
		return ls.OpenStream(ctx, provider.StreamConfig{
			APIBase: params.APIBase,
			APIKey:  params.APIKey,
			Params: stream.ListenParams{
				Model:      params.Model,
				Channels:   mode.Channels(),
				SampleRate: audio.SampleRate,
				Languages:  params.Languages,
				Keywords:   params.Keywords,
			},
		})
	}
}

// State reports the current lifecycle position and whether the upstream
// connection is degraded.
func (s *Supervisor) State() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.degraded
}

// Start brings the session up. Rejected while another run is active. A
// concurrent Stop blocks until bring-up finishes, then tears down normally.
func (s *Supervisor) Start(ctx context.Context, params Params) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateInactive {
		s.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("session %s: already active", params.ID), errorsx.ReasonSessionActive)
	}
	s.state = StateActive
	s.degraded = false
	s.sctx = newContext(params, s.cfg.Runtime.SessionsDir())
	s.mu.Unlock()

	logger := logging.NewSessionLogger(s.cfg.Logger, "session", params.ID)
	s.cfg.Runtime.EmitLifecycle(LifecycleEvent{SessionID: params.ID, State: StateActive})
	s.cfg.Metrics.Record(metrics.New("session_start", 1, "session_id", params.ID))

	if err := s.bringUp(ctx, params, logger); err != nil {
		s.teardown(err)
		return err
	}
	return nil
}

func (s *Supervisor) bringUp(ctx context.Context, params Params, logger *slog.Logger) error {
	mode := params.Mode()
	s.progress(params.ID, StageAudioInitializing)

	if err := os.MkdirAll(s.sctx.Dir, 0o755); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonAudioCapture)
	}

	mic, speaker, err := s.cfg.OpenDevices(mode)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonAudioDevice)
	}
	source, err := audio.NewSource(audio.Config{
		Mode:    mode,
		Mic:     mic,
		Speaker: speaker,
		Cadence: s.cfg.Cadence,
		Logger:  s.cfg.Logger,
	})
	if err != nil {
		return err
	}

	var rec *Recorder
	if params.RecordingEnabled {
		rec, err = NewRecorder(s.sctx.AudioPath(), int(mode.Channels()))
		if err != nil {
			return errorsx.Wrap(err, errorsx.ReasonAudioCapture)
		}
	}

	s.mu.Lock()
	s.source = source
	s.recorder = rec
	s.mu.Unlock()

	source.Start()
	s.progress(params.ID, StageAudioReady)

	s.progress(params.ID, StageConnecting)
	up, err := s.cfg.Dial(ctx, params, mode)
	if err != nil {
		// Local capture continues; the session runs degraded.
		s.markDegraded(params.ID, err, logger)
	} else {
		// Provider clocks start at connection open, so the shift onto the
		// session clock is fixed here, not re-read per response.
		connected := s.sctx.Elapsed()
		lst, lerr := listener.New(listener.Config{
			SessionID: params.ID,
			Stream:    up,
			Offset:    func() time.Duration { return connected },
			Metadata: map[string]string{
				"channel_mode": mode.String(),
				"onboarding":   fmt.Sprintf("%t", params.Onboarding),
			},
			DrainTimeout: s.cfg.DrainTimeout,
			Watchdog:     s.cfg.Watchdog,
			Logger:       s.cfg.Logger,
		})
		if lerr != nil {
			up.Close()
			return lerr
		}
		s.mu.Lock()
		s.lst = lst
		s.stream = up
		s.mu.Unlock()
		lst.Start()
		s.progress(params.ID, StageConnected)

		s.pumps.Add(1)
		go s.pumpEvents(params.ID, lst, logger)
	}

	s.pumps.Add(1)
	go s.pumpAudio(params.ID, source, logger)
	return nil
}

// pumpAudio moves captured chunks to the recorder and the upstream
// connection, and watches for capture failures.
func (s *Supervisor) pumpAudio(sessionID string, source *audio.Source, logger *slog.Logger) {
	defer s.pumps.Done()
	for {
		select {
		case chunk, ok := <-source.Chunks():
			if !ok {
				return
			}
			samples := chunk.Interleave()
			s.chunkMetrics.Record(metrics.New("audio_chunk", float64(len(samples)), "session_id", sessionID))
			if rec := s.currentRecorder(); rec != nil {
				if err := rec.Write(samples); err != nil {
					logger.Warn("recording write failed", slog.String("error", err.Error()))
				}
			}
			if up := s.currentStream(); up != nil {
				if err := up.SendAudio(audio.EncodePCM16(samples)); err != nil {
					s.markDegraded(sessionID, errorsx.Wrap(err, errorsx.ReasonSTTSend), logger)
				}
			}
		case e, ok := <-source.Errors():
			if !ok {
				return
			}
			if e.Fatal {
				logger.Error("fatal capture failure", slog.String("error", e.Message))
				go s.failFromChild(errorsx.Wrap(e, errorsx.ReasonAudioDevice))
				return
			}
			s.cfg.Runtime.EmitError(ErrorEvent{
				SessionID: sessionID,
				Reason:    string(errorsx.ReasonAudioCapture),
				Message:   e.Message,
			})
		}
	}
}

// pumpEvents forwards listener output to the runtime. Terminal stream
// signals mark the session degraded rather than tearing it down.
func (s *Supervisor) pumpEvents(sessionID string, lst *listener.Listener, logger *slog.Logger) {
	defer s.pumps.Done()
	for ev := range lst.Events() {
		switch v := ev.(type) {
		case stream.ErrorEvent:
			s.markDegraded(sessionID, errorsx.Wrap(errors.New(v.Message), errorsx.ReasonSTTStream), logger)
		case stream.TimeoutEvent:
			s.markDegraded(sessionID, errorsx.Wrap(errors.New("upstream read timed out"), errorsx.ReasonSTTTimeout), logger)
		case stream.TranscriptEvent:
			if v.IsFinal {
				logger.Debug("final transcript", slog.String("text", redact.Text(v.Transcript())))
				s.cfg.Metrics.Record(metrics.New("transcript_final", 1, "session_id", sessionID))
			}
			s.cfg.Runtime.EmitData(DataEvent{SessionID: sessionID, Response: ev})
		default:
			s.cfg.Runtime.EmitData(DataEvent{SessionID: sessionID, Response: ev})
		}
	}
}

func (s *Supervisor) markDegraded(sessionID string, err error, logger *slog.Logger) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		logger.Warn("session degraded", slog.String("error", err.Error()))
	}
	s.cfg.Runtime.EmitError(ErrorEvent{
		SessionID: sessionID,
		Reason:    string(errorsx.Reason(err)),
		Message:   err.Error(),
	})
}

// failFromChild tears the session down after a fatal child failure.
func (s *Supervisor) failFromChild(err error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateFinalizing
	s.mu.Unlock()
	s.teardown(err)
}

// Stop finalizes and shuts the session down. A no-op unless active.
func (s *Supervisor) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateFinalizing
	id := s.sctx.Params.ID
	s.mu.Unlock()

	s.cfg.Runtime.EmitLifecycle(LifecycleEvent{SessionID: id, State: StateFinalizing})
	s.teardown(nil)
}

func (s *Supervisor) teardown(cause error) {
	s.mu.Lock()
	s.state = StateFinalizing
	id := s.sctx.Params.ID
	lst := s.lst
	source := s.source
	rec := s.recorder
	s.mu.Unlock()

	if lst != nil {
		lst.Shutdown()
		select {
		case <-lst.Done():
		case <-time.After(s.cfg.DrainTimeout + 2*time.Second):
			s.logger.Warn("listener did not drain in time", slog.String("session_id", id))
			lst.Detach()
		}
	}
	if source != nil {
		source.Stop()
	}
	s.pumps.Wait()
	if rec != nil {
		if err := rec.Close(); err != nil {
			s.logger.Warn("recording close failed", slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	s.state = StateInactive
	s.degraded = false
	s.source = nil
	s.lst = nil
	s.stream = nil
	s.recorder = nil
	s.mu.Unlock()

	s.cfg.Metrics.Record(metrics.New("session_stop", s.sctx.Elapsed().Seconds(), "session_id", id))
	ev := LifecycleEvent{SessionID: id, State: StateInactive}
	if cause != nil {
		ev.Error = cause.Error()
	}
	s.cfg.Runtime.EmitLifecycle(ev)
}

// SetMicMute toggles mic zeroing on the live source.
func (s *Supervisor) SetMicMute(muted bool) {
	if src := s.currentSource(); src != nil {
		src.SetMicMute(muted)
	}
}

func (s *Supervisor) GetMicMute() bool {
	if src := s.currentSource(); src != nil {
		return src.GetMicMute()
	}
	return false
}

func (s *Supervisor) GetMicDevice() string {
	if src := s.currentSource(); src != nil {
		return src.GetMicDevice()
	}
	return ""
}

func (s *Supervisor) progress(sessionID string, stage Stage) {
	s.cfg.Runtime.EmitProgress(ProgressEvent{SessionID: sessionID, Stage: stage})
}

func (s *Supervisor) currentSource() *audio.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Supervisor) currentStream() provider.LiveStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *Supervisor) currentRecorder() *Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}
