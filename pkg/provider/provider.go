// Package provider defines the capability contract every speech-to-text
// backend implements and the shared connection-target policy. The provider
// set is closed: nine known backends, dispatched through a registry populated
// by each adapter package's init.
package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

// Name identifies one backend of the closed provider set.
type Name string

const (
	Deepgram   Name = "deepgram"
	Soniox     Name = "soniox"
	AssemblyAI Name = "assemblyai"
	Gladia     Name = "gladia"
	ElevenLabs Name = "elevenlabs"
	Fireworks  Name = "fireworks"
	OpenAI     Name = "openai"
	DashScope  Name = "dashscope"
	Mistral    Name = "mistral"
)

// All returns the full provider set in preference order. Capability queries
// walk this order.
func All() []Name {
	return []Name{
		Deepgram, Soniox, AssemblyAI, Gladia, ElevenLabs,
		Fireworks, OpenAI, DashScope, Mistral,
	}
}

// ForName resolves a wire name to a known provider.
func ForName(s string) (Name, bool) {
	for _, n := range All() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Adapter is the capability set required of every backend.
type Adapter interface {
	Name() Name

	// LiveSupport classifies how well the live connection serves a
	// requested language set (worst-tier reduction).
	LiveSupport(langs []string) language.Support
	// BatchSupport classifies the one-shot transcription path.
	BatchSupport(langs []string) language.Support

	// ConnectionTarget builds the websocket url and extra query parameters
	// for a live connection against the given api base.
	ConnectionTarget(apiBase string) (Target, error)
}

// IsSupportedLive reports whether every requested language is served live.
func IsSupportedLive(a Adapter, langs []string) bool {
	return a.LiveSupport(langs).IsSupported()
}

// IsSupportedBatch reports whether every requested language is served in batch.
func IsSupportedBatch(a Adapter, langs []string) bool {
	return a.BatchSupport(langs).IsSupported()
}

// StreamConfig configures one live connection.
type StreamConfig struct {
	APIBase string
	APIKey  string
	Params  stream.ListenParams
}

// LiveStream is one open duplex connection to a backend. Audio and control
// frames go in; normalized events come out. Events is closed after a
// terminal event (EndedEvent or ErrorEvent).
type LiveStream interface {
	// SendAudio writes one frame of PCM in the connection's wire encoding.
	SendAudio(pcm []byte) error
	// SendControl sends Finalize, KeepAlive or CloseStream translated to
	// the backend's native form.
	SendControl(c stream.Control) error
	// Events yields normalized responses in receipt order.
	Events() <-chan stream.Event
	// ExpectedFinalizeCount is how many finalize-tagged responses the
	// caller should wait for before treating the connection as drained.
	ExpectedFinalizeCount() int
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// LiveStreamer is implemented by backends with a realtime connection.
type LiveStreamer interface {
	Adapter
	OpenStream(ctx context.Context, cfg StreamConfig) (LiveStream, error)
}

// FileTranscriber is implemented by backends with one-shot file upload.
type FileTranscriber interface {
	Adapter
	TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error)
}

// CallbackOutcome is the resolved result of one webhook delivery.
type CallbackOutcome struct {
	Done         bool
	RawResult    json.RawMessage
	ErrorMessage string
}

// CallbackTranscriber is implemented by backends that only deliver results
// through an async submit-then-webhook flow.
type CallbackTranscriber interface {
	Adapter
	// SubmitCallback submits the audio at audioURL and returns the
	// provider-assigned request id.
	SubmitCallback(ctx context.Context, client *http.Client, apiKey, audioURL, callbackURL string) (string, error)
	// ProcessCallback resolves a webhook payload into a terminal outcome.
	ProcessCallback(ctx context.Context, client *http.Client, apiKey string, payload []byte) (CallbackOutcome, error)
}
