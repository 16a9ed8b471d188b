// Package openai adapts the OpenAI whisper one-shot transcription API.
// There is no realtime transcription path here; live sessions pick another
// backend.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

func init() {
	provider.Register(Adapter{})
}

var endpoint = provider.Endpoint{
	DefaultHost: "api.openai.com",
	Domain:      "openai.com",
	Path:        "/v1/realtime",
}

// Whisper-family coverage, same tiering as the other whisper hosts.
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

func (Adapter) Name() provider.Name { return provider.OpenAI }

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
	return endpoint.Resolve(provider.OpenAI, apiBase)
}

func (a Adapter) TranscribeFile(ctx context.Context, client *http.Client, apiBase, apiKey string, params stream.ListenParams, path string) (*stream.BatchResponse, error) {
	cfg := goopenai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = strings.TrimSuffix(apiBase, "/") + "/v1"
	}
	if client != nil {
		cfg.HTTPClient = client
	}

	model := params.Model
	if model == "" {
		model = goopenai.Whisper1
	}

	req := goopenai.AudioRequest{
		Model:    model,
		FilePath: path,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []goopenai.TranscriptionTimestampGranularity{
			goopenai.TranscriptionTimestampGranularityWord,
			goopenai.TranscriptionTimestampGranularitySegment,
		},
	}
	if !strings.HasSuffix(model, ".en") {
		req.Language = language.Pick(params.Languages, languages)
	}

	resp, err := goopenai.NewClientWithConfig(cfg).CreateTranscription(ctx, req)
	if err != nil {
		return nil, translateError(err)
	}
	return normalize(resp), nil
}

// translateError maps the client's typed API error onto the shared
// unexpected-status shape so callers see one error vocabulary.
func translateError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return errorsx.NewUnexpectedStatus(string(provider.OpenAI), apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}
	return err
}

func normalize(resp goopenai.AudioResponse) *stream.BatchResponse {
	alt := stream.Alternative{
		Transcript: strings.TrimSpace(resp.Text),
		Confidence: segmentConfidence(resp),
	}
	for _, w := range resp.Words {
		alt.Words = append(alt.Words, stream.Word{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		})
	}
	meta, _ := json.Marshal(map[string]any{
		"language": resp.Language,
		"duration": resp.Duration,
	})
	return stream.SingleChannel(alt, meta)
}

// segmentConfidence folds per-segment average log-probabilities back into a
// 0..1 confidence.
func segmentConfidence(resp goopenai.AudioResponse) float64 {
	if len(resp.Segments) == 0 {
		return 0
	}
	sum := 0.0
	for _, seg := range resp.Segments {
		sum += seg.AvgLogprob
	}
	return math.Exp(sum / float64(len(resp.Segments)))
}

var _ provider.FileTranscriber = Adapter{}
