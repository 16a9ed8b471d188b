// Package elevenlabs adapts the ElevenLabs scribe API, realtime and one-shot.
package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/stream"
	"github.com/murmurlabs/verbatim/pkg/wsc"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "api.elevenlabs.io",
	Domain:      "elevenlabs.io",
	Path:        "/v1/speech-to-text/realtime",
}

var languages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"es": language.QualityHigh,
	"fr": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"pl": language.QualityHigh,
	"nl": language.QualityHigh,
	"ja": language.QualityHigh,
	"ko": language.QualityHigh,
	"zh": language.QualityHigh,
	"hi": language.QualityHigh,
	"ru": language.QualityGood,
	"uk": language.QualityGood,
	"tr": language.QualityGood,
	"ar": language.QualityGood,
	"id": language.QualityGood,
	"vi": language.QualityGood,
	"th": language.QualityGood,
	"sv": language.QualityGood,
	"fi": language.QualityGood,
	"cs": language.QualityModerate,
	"el": language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.ElevenLabs }

func (Adapter) LiveSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

func (Adapter) BatchSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

func classify(lang string) language.Support {
	q, ok := languages[lang]
	if !ok {
		return language.NotSupported()
	}
	return language.Supported(q)
}

func (Adapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return endpoint.Resolve(provider.ElevenLabs, apiBase)
}

func (a Adapter) OpenStream(ctx context.Context, cfg provider.StreamConfig) (provider.LiveStream, error) {
	target, err := a.ConnectionTarget(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	q := cfg.Params.Query()
	if q.Get("model") == "" {
		q.Set("model", "scribe_v1_realtime")
	}
	// Scribe streams one language at a time.
	q.Del("language")
	q.Set("language_code", language.Pick(cfg.Params.Languages, languages))
	q.Set("encoding", "pcm_s16le")

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("xi-api-key", cfg.APIKey)
	}

	conn, err := wsc.Dial(ctx, wsc.Config{URL: target.DialURL(q), Header: header})
	if err != nil {
		return nil, err
	}
	return provider.NewLiveStream(provider.ElevenLabs, conn, &codec{}, 1), nil
}

func (a Adapter) TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error) {
	target, err := a.ConnectionTarget(apiBase)
	if err != nil {
		return nil, err
	}
	target = target.HTTP()
	// The one-shot endpoint is the realtime path without the suffix. A
	// reverse proxy keeps its own path untouched.
	target.URL = strings.TrimSuffix(target.URL, "/realtime")

	q := url.Values{}
	model := params.Model
	if model == "" {
		model = "scribe_v1"
	}
	q.Set("model_id", model)
	q.Set("language_code", language.Pick(params.Languages, languages))
	q.Set("diarize", "true")

	header := http.Header{}
	if apiKey != "" {
		header.Set("xi-api-key", apiKey)
	}

	body, err := provider.PostFile(ctx, client, provider.ElevenLabs, target.DialURL(q), header, path)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.normalize(), nil
}

var (
	_ provider.LiveStreamer    = Adapter{}
	_ provider.FileTranscriber = Adapter{}
)
