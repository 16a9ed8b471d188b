// Package session hosts the per-session supervisor: the state machine that
// owns audio capture, the upstream listener and the recording for one
// transcription session.
package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/murmurlabs/verbatim/pkg/audio"
	"github.com/murmurlabs/verbatim/pkg/configutil"
)

// Params is the immutable per-session configuration handed in at start.
type Params struct {
	ID               string   `mapstructure:"id"`
	Languages        []string `mapstructure:"languages"`
	Onboarding       bool     `mapstructure:"onboarding"`
	RecordingEnabled bool     `mapstructure:"recording_enabled"`
	Model            string   `mapstructure:"model"`
	APIBase          string   `mapstructure:"api_base"`
	APIKey           string   `mapstructure:"api_key"`
	Keywords         []string `mapstructure:"keywords"`
}

// ParamsFromSettings decodes a free-form settings map, as delivered by a
// config file or a start request, into Params. The session id is required.
func ParamsFromSettings(settings map[string]any) (Params, error) {
	var p Params
	if err := configutil.DecodeSettings(settings, &p); err != nil {
		return Params{}, fmt.Errorf("session: decode params: %w", err)
	}
	if err := configutil.RequireString(p.ID, "session.id"); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Mode derives the channel mode from the onboarding flag.
func (p Params) Mode() audio.ChannelMode {
	return audio.DetermineMode(p.Onboarding)
}

// Context aggregates the params with the session's start instants and its
// working directory. Owned exclusively by the supervisor.
type Context struct {
	Params    Params
	StartedAt time.Time
	startMono time.Time
	Dir       string
}

func newContext(params Params, sessionsDir string) Context {
	now := time.Now()
	return Context{
		Params:    params,
		StartedAt: now,
		startMono: now,
		Dir:       filepath.Join(sessionsDir, params.ID),
	}
}

// Elapsed is the monotonic time since session start. Sampled at connection
// open, it becomes the offset added to provider-local word timings.
func (c Context) Elapsed() time.Duration {
	return time.Since(c.startMono)
}

// AudioPath is where the session recording lands when enabled.
func (c Context) AudioPath() string {
	return filepath.Join(c.Dir, "audio.wav")
}
