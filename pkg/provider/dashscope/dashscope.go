// Package dashscope adapts the Aliyun DashScope paraformer realtime API.
package dashscope

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/wsc"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "dashscope-intl.aliyuncs.com",
	Domain:      "aliyuncs.com",
	Path:        "/api-ws/v1/realtime",
}

const defaultModel = "paraformer-realtime-v2"

var languages = map[string]language.Quality{
	"zh":  language.QualityExcellent,
	"yue": language.QualityHigh,
	"en":  language.QualityHigh,
	"ja":  language.QualityGood,
	"ko":  language.QualityGood,
	"de":  language.QualityModerate,
	"fr":  language.QualityModerate,
	"ru":  language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.DashScope }

func (Adapter) LiveSupport(langs []string) language.Support {
	return language.Reduce(langs, classify)
}

func (Adapter) BatchSupport(langs []string) language.Support {
	return language.NotSupported()
}

func classify(lang string) language.Support {
	q, ok := languages[lang]
	if !ok {
		return language.NotSupported()
	}
	return language.Supported(q)
}

func (Adapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return endpoint.Resolve(provider.DashScope, apiBase)
}

func (a Adapter) OpenStream(ctx context.Context, cfg provider.StreamConfig) (provider.LiveStream, error) {
	target, err := a.ConnectionTarget(cfg.APIBase)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "bearer "+cfg.APIKey)
	}

	conn, err := wsc.Dial(ctx, wsc.Config{URL: target.DialURL(nil), Header: header})
	if err != nil {
		return nil, err
	}

	model := cfg.Params.Model
	if model == "" {
		model = defaultModel
	}
	sampleRate := cfg.Params.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	c := newCodec(uuid.NewString())
	// The task must be opened before any audio frame.
	if err := conn.WriteJSON(c.runTask(model, sampleRate, cfg.Params.Languages)); err != nil {
		conn.Close()
		return nil, err
	}
	return provider.NewLiveStream(provider.DashScope, conn, c, 1), nil
}

var _ provider.LiveStreamer = Adapter{}
