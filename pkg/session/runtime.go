package session

import "github.com/murmurlabs/verbatim/pkg/stream"

// State is the supervisor's lifecycle position.
type State int

const (
	StateInactive State = iota
	StateActive
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Stage is a startup progress marker, emitted in fixed order.
type Stage string

const (
	StageAudioInitializing Stage = "audio_initializing"
	StageAudioReady        Stage = "audio_ready"
	StageConnecting        Stage = "connecting"
	StageConnected         Stage = "connected"
)

// LifecycleEvent reports a state transition. Error is set when the session
// ended because of a failure.
type LifecycleEvent struct {
	SessionID string
	State     State
	Error     string
}

// ProgressEvent reports a startup stage.
type ProgressEvent struct {
	SessionID string
	Stage     Stage
}

// ErrorEvent reports a non-terminal failure, e.g. a degraded upstream
// connection while local capture continues.
type ErrorEvent struct {
	SessionID string
	Reason    string
	Message   string
}

// DataEvent carries one normalized response to the host.
type DataEvent struct {
	SessionID string
	Response  stream.Event
}

// Runtime is the host boundary: the sole output channel from the session
// core to the surrounding application.
type Runtime interface {
	SessionsDir() string
	EmitLifecycle(ev LifecycleEvent)
	EmitProgress(ev ProgressEvent)
	EmitError(ev ErrorEvent)
	EmitData(ev DataEvent)
}
