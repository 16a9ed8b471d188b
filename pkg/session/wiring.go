package session

import (
	"log/slog"

	"github.com/murmurlabs/verbatim/pkg/config"
	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/metrics"
	"github.com/murmurlabs/verbatim/pkg/redact"
)

// NewRegistryConfig maps the service-level session settings onto the
// supervisor Config a Registry shares. Capture devices are host specific,
// so the opener stays with the caller; rt delivers events back to the host
// (NewLogRuntime for headless shells).
func NewRegistryConfig(sc config.SessionsConfig, rt Runtime, open OpenDevicesFunc, obs metrics.Observer, logger *slog.Logger) Config {
	redact.SetPIIEnabled(sc.RedactPII)
	return Config{
		Runtime:      rt,
		OpenDevices:  open,
		DrainTimeout: sc.DrainTimeout,
		Watchdog:     sc.Watchdog,
		Cadence:      sc.Cadence,
		Metrics:      obs,
		Logger:       logger,
	}
}

// LogRuntime is a Runtime for hosts without their own event surface:
// lifecycle, progress and errors go to the structured log; data events go
// to the optional sink, or the log at debug when none is set.
type LogRuntime struct {
	dir    string
	logger *slog.Logger

	// Data receives normalized responses when set.
	Data func(ev DataEvent)
}

var _ Runtime = (*LogRuntime)(nil)

func NewLogRuntime(dir string, logger *slog.Logger) *LogRuntime {
	return &LogRuntime{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "session_runtime"),
	}
}

func (r *LogRuntime) SessionsDir() string { return r.dir }

func (r *LogRuntime) EmitLifecycle(ev LifecycleEvent) {
	if ev.Error != "" {
		r.logger.Warn("session state",
			slog.String("session_id", ev.SessionID),
			slog.String("state", ev.State.String()),
			slog.String("error", ev.Error))
		return
	}
	r.logger.Info("session state",
		slog.String("session_id", ev.SessionID),
		slog.String("state", ev.State.String()))
}

func (r *LogRuntime) EmitProgress(ev ProgressEvent) {
	r.logger.Info("session progress",
		slog.String("session_id", ev.SessionID),
		slog.String("stage", string(ev.Stage)))
}

func (r *LogRuntime) EmitError(ev ErrorEvent) {
	r.logger.Warn("session error",
		slog.String("session_id", ev.SessionID),
		slog.String("reason", ev.Reason),
		slog.String("message", ev.Message))
}

func (r *LogRuntime) EmitData(ev DataEvent) {
	if r.Data != nil {
		r.Data(ev)
		return
	}
	r.logger.Debug("session data", slog.String("session_id", ev.SessionID))
}
