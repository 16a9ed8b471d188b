// Package soniox adapts the Soniox realtime websocket API. Soniox
// authenticates with a config message after the handshake and reports
// token-level results that are regrouped into transcript events.
package soniox

import (
	"context"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/wsc"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "stt-rt.soniox.com",
	Domain:      "soniox.com",
	Path:        "/transcribe-websocket",
}

var liveLanguages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"es": language.QualityHigh,
	"fr": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityHigh,
	"pl": language.QualityHigh,
	"ru": language.QualityHigh,
	"uk": language.QualityHigh,
	"tr": language.QualityHigh,
	"ar": language.QualityGood,
	"hi": language.QualityGood,
	"ja": language.QualityGood,
	"ko": language.QualityGood,
	"zh": language.QualityGood,
	"id": language.QualityGood,
	"th": language.QualityGood,
	"vi": language.QualityGood,
	"ms": language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.Soniox }

func (Adapter) LiveSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

// Soniox has no one-shot upload path.
func (Adapter) BatchSupport([]string) language.Support {
	return language.NotSupported()
}

func classify(lang string) language.Support {
	q, ok := liveLanguages[lang]
	if !ok {
		return language.NotSupported()
	}
	return language.Supported(q)
}

func (Adapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return endpoint.Resolve(provider.Soniox, apiBase)
}

// config is the first message on the connection; Soniox takes the key here
// rather than in a header.
type config struct {
	APIKey                   string   `json:"api_key"`
	Model                    string   `json:"model"`
	AudioFormat              string   `json:"audio_format"`
	SampleRate               uint32   `json:"sample_rate"`
	NumChannels              int      `json:"num_channels"`
	LanguageHints            []string `json:"language_hints,omitempty"`
	EnableSpeakerDiarization bool     `json:"enable_speaker_diarization"`
	EnableEndpointDetection  bool     `json:"enable_endpoint_detection"`
	Context                  string   `json:"context,omitempty"`
}

func (a Adapter) OpenStream(ctx context.Context, cfg provider.StreamConfig) (provider.LiveStream, error) {
	target, err := a.ConnectionTarget(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	conn, err := wsc.Dial(ctx, wsc.Config{URL: target.DialURL(cfg.Params.Query())})
	if err != nil {
		return nil, err
	}

	model := cfg.Params.Model
	if model == "" {
		model = "stt-rt-preview"
	}
	channels := int(cfg.Params.Channels)
	if channels < 1 {
		channels = 1
	}
	hints := make([]string, 0, len(cfg.Params.Languages))
	for _, lang := range cfg.Params.Languages {
		hints = append(hints, language.Normalize(lang))
	}
	keywords := ""
	for i, kw := range cfg.Params.Keywords {
		if i > 0 {
			keywords += ", "
		}
		keywords += kw
	}

	if err := conn.WriteJSON(config{
		APIKey:                   cfg.APIKey,
		Model:                    model,
		AudioFormat:              "pcm_s16le",
		SampleRate:               cfg.Params.SampleRate,
		NumChannels:              channels,
		LanguageHints:            hints,
		EnableSpeakerDiarization: true,
		EnableEndpointDetection:  true,
		Context:                  keywords,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	return provider.NewLiveStream(provider.Soniox, conn, &codec{}, 1), nil
}

var _ provider.LiveStreamer = Adapter{}
