// Package mistral adapts the Mistral voxtral one-shot transcription API.
package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "api.mistral.ai",
	Domain:      "mistral.ai",
	Path:        "/v1/audio/transcriptions",
}

const defaultModel = "voxtral-mini-latest"

var languages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"fr": language.QualityExcellent,
	"es": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityHigh,
	"pl": language.QualityGood,
	"ru": language.QualityGood,
	"ar": language.QualityGood,
	"hi": language.QualityGood,
	"ja": language.QualityGood,
	"ko": language.QualityModerate,
	"zh": language.QualityModerate,
}

type Adapter struct{}

func (Adapter) Name() provider.Name { return provider.Mistral }

func (Adapter) LiveSupport(langs []string) language.Support {
	return language.NotSupported()
}

func (Adapter) BatchSupport(langs []string) language.Support {
	return language.Reduce(langs, func(lang string) language.Support {
		q, ok := languages[lang]
		if !ok {
			return language.NotSupported()
		}
		return language.Supported(q)
	})
}

func (Adapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return endpoint.Resolve(provider.Mistral, apiBase)
}

func (a Adapter) TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error) {
	target, err := a.ConnectionTarget(apiBase)
	if err != nil {
		return nil, err
	}
	target = target.HTTP()

	model := params.Model
	if model == "" {
		model = defaultModel
	}

	q := url.Values{}
	q.Set("model", model)
	q.Set("language", language.Pick(params.Languages, languages))
	q.Set("timestamp_granularities", "segment")

	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	body, err := provider.PostFile(ctx, client, provider.Mistral, target.DialURL(q), header, path)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.normalize(), nil
}

type batchSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type batchResponse struct {
	Model    string         `json:"model"`
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Segments []batchSegment `json:"segments"`
}

func (r batchResponse) normalize() *stream.BatchResponse {
	alt := stream.Alternative{Transcript: r.Text}
	// Segment timings are the finest granularity offered; they stand in
	// for word entries so offset shifting still applies.
	for _, seg := range r.Segments {
		alt.Words = append(alt.Words, stream.Word{
			Word:  seg.Text,
			Start: seg.Start,
			End:   seg.End,
		})
	}
	meta, _ := json.Marshal(map[string]string{
		"model":    r.Model,
		"language": r.Language,
	})
	return stream.SingleChannel(alt, meta)
}

var _ provider.FileTranscriber = Adapter{}
