// Package fireworks adapts the Fireworks whisper endpoints, streaming and
// one-shot.
package fireworks

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
	DefaultHost: "audio-streaming.us-virginia-1.direct.fireworks.ai",
	Domain:      "fireworks.ai",
	Path:        "/v1/audio/transcriptions/streaming",
}

const defaultModel = "whisper-v3-turbo"

// Whisper-family coverage.
var languages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"es": language.QualityHigh,
	"fr": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityHigh,
	"pl": language.QualityHigh,
	"ru": language.QualityHigh,
	"ja": language.QualityHigh,
	"ko": language.QualityHigh,
	"zh": language.QualityHigh,
	"tr": language.QualityGood,
	"ar": language.QualityGood,
	"hi": language.QualityGood,
	"uk": language.QualityGood,
	"id": language.QualityGood,
	"vi": language.QualityGood,
	"sv": language.QualityGood,
	"da": language.QualityGood,
	"no": language.QualityGood,
	"fi": language.QualityGood,
	"cs": language.QualityGood,
	"el": language.QualityModerate,
	"th": language.QualityModerate,
	"he": language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.Fireworks }

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
	return endpoint.Resolve(provider.Fireworks, apiBase)
}

// applyLanguage sets the whisper language selection. English-only model
// variants (".en" suffix) pin the language and disable detection outright
// when the caller expressed a preference.
func applyLanguage(q url.Values, model string, langs []string) {
	if strings.HasSuffix(model, ".en") {
		q.Set("language", "en")
		if len(langs) > 0 {
			q.Set("detect_language", "false")
		}
		return
	}
	q.Set("language", language.Pick(langs, languages))
}

func (a Adapter) OpenStream(ctx context.Context, cfg provider.StreamConfig) (provider.LiveStream, error) {
	target, err := a.ConnectionTarget(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	model := cfg.Params.Model
	if model == "" {
		model = defaultModel
	}

	q := cfg.Params.Query()
	q.Set("model", model)
	q.Del("language")
	applyLanguage(q, model, cfg.Params.Languages)

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	conn, err := wsc.Dial(ctx, wsc.Config{URL: target.DialURL(q), Header: header})
	if err != nil {
		return nil, err
	}
	return provider.NewLiveStream(provider.Fireworks, conn, newCodec(), 1), nil
}

func (a Adapter) TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error) {
	target, err := a.ConnectionTarget(apiBase)
	if err != nil {
		return nil, err
	}
	target = target.HTTP()
	// Same host policy as the live path, minus the streaming suffix.
	target.URL = strings.TrimSuffix(target.URL, "/streaming")

	model := params.Model
	if model == "" {
		model = defaultModel
	}

	q := url.Values{}
	q.Set("model", model)
	applyLanguage(q, model, params.Languages)
	q.Set("response_format", "verbose_json")
	q.Set("timestamp_granularities", "word")

	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	body, err := provider.PostFile(ctx, client, provider.Fireworks, target.DialURL(q), header, path)
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
