// Package deepgram adapts the Deepgram realtime and prerecorded APIs to the
// shared provider contract. Deepgram's wire shape is the closest to the
// normalized model, so translation is mostly a copy with finalize tagging.
package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/stream"
	"github.com/murmurlabs/verbatim/pkg/wsc"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "api.deepgram.com",
	Domain:      "deepgram.com",
	Path:        "/v1/listen",
}

var liveLanguages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"es": language.QualityHigh,
	"fr": language.QualityHigh,
	"de": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityHigh,
	"it": language.QualityHigh,
	"ja": language.QualityHigh,
	"ko": language.QualityHigh,
	"zh": language.QualityHigh,
	"hi": language.QualityGood,
	"ru": language.QualityGood,
	"tr": language.QualityGood,
	"pl": language.QualityGood,
	"sv": language.QualityGood,
	"uk": language.QualityGood,
	"id": language.QualityGood,
	"da": language.QualityGood,
	"no": language.QualityGood,
	"vi": language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.Deepgram }

func (Adapter) LiveSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

func (Adapter) BatchSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

func classify(lang string) language.Support {
	q, ok := liveLanguages[lang]
	if !ok {
		return language.NotSupported()
	}
	return language.Supported(q)
}

func (Adapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return endpoint.Resolve(provider.Deepgram, apiBase)
}

func (a Adapter) OpenStream(ctx context.Context, cfg provider.StreamConfig) (provider.LiveStream, error) {
	target, err := a.ConnectionTarget(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	q := cfg.Params.Query()
	if q.Get("model") == "" {
		q.Set("model", "nova-3")
	}
	q.Set("encoding", "linear16")
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	if cfg.Params.Channels > 1 {
		q.Set("multichannel", "true")
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Token "+cfg.APIKey)
	}

	conn, err := wsc.Dial(ctx, wsc.Config{URL: target.DialURL(q), Header: header})
	if err != nil {
		return nil, err
	}

	channels := int(cfg.Params.Channels)
	if channels < 1 {
		channels = 1
	}
	// Deepgram flushes one finalize-tagged result per channel.
	return provider.NewLiveStream(provider.Deepgram, conn, &codec{}, channels), nil
}

func (a Adapter) TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error) {
	target, err := a.ConnectionTarget(apiBase)
	if err != nil {
		return nil, err
	}
	target = target.HTTP()

	q := url.Values{}
	if params.Model != "" {
		q.Set("model", params.Model)
	}
	for _, lang := range params.Languages {
		q.Add("language", lang)
	}
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if params.Channels > 1 {
		q.Set("multichannel", "true")
		q.Set("channels", strconv.Itoa(int(params.Channels)))
	}

	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Token "+apiKey)
	}

	body, err := provider.PostFile(ctx, client, provider.Deepgram, target.DialURL(q), header, path)
	if err != nil {
		return nil, err
	}

	var out stream.BatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ provider.LiveStreamer    = Adapter{}
	_ provider.FileTranscriber = Adapter{}
)
