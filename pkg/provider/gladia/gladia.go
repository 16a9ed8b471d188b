// Package gladia adapts Gladia's async pre-recorded API. Unlike AssemblyAI
// the webhook delivery carries the full result inline, so no fetch-back is
// needed.
package gladia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
)

func init() {
	provider.Register(Adapter{})
}

const defaultAPIBase = "https://api.gladia.io"

var endpoint = provider.Endpoint{
	DefaultHost: "api.gladia.io",
	Domain:      "gladia.io",
	Path:        "/v2/live",
}

var batchLanguages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"fr": language.QualityExcellent,
	"es": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityHigh,
	"pl": language.QualityGood,
	"ro": language.QualityGood,
	"ru": language.QualityGood,
	"ar": language.QualityGood,
	"ja": language.QualityGood,
	"ko": language.QualityGood,
	"zh": language.QualityGood,
	"hi": language.QualityGood,
	"tr": language.QualityGood,
	"sv": language.QualityModerate,
	"da": language.QualityModerate,
}

// Adapter's zero value talks to the public API.
type Adapter struct {
	APIBase string
}

func (a Adapter) base() string {
	if a.APIBase != "" {
		return a.APIBase
	}
	return defaultAPIBase
}

func (Adapter) Name() provider.Name { return provider.Gladia }

func (Adapter) LiveSupport([]string) language.Support {
	return language.NotSupported()
}

func (Adapter) BatchSupport(langs []string) language.Support {
	return language.Reduce(langs, func(lang string) language.Support {
		q, ok := batchLanguages[lang]
		if !ok {
			return language.NotSupported()
		}
		return language.Supported(q)
	})
}

func (Adapter) ConnectionTarget(base string) (provider.Target, error) {
	return endpoint.Resolve(provider.Gladia, base)
}

type submitRequest struct {
	AudioURL    string `json:"audio_url"`
	CallbackURL string `json:"callback_url"`
	Diarization bool   `json:"diarization"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// webhookPayload is Gladia's delivery: an event name plus the result inline.
type webhookPayload struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (a Adapter) SubmitCallback(ctx context.Context, client *http.Client, apiKey, audioURL, callbackURL string) (string, error) {
	payload, err := json.Marshal(submitRequest{
		AudioURL:    audioURL,
		CallbackURL: callbackURL,
		Diarization: true,
	})
	if err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("x-gladia-key", apiKey)

	body, err := provider.PostJSON(ctx, client, provider.Gladia, a.base()+"/v2/pre-recorded", header, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("gladia: submit response missing id")
	}
	return resp.ID, nil
}

func (Adapter) ProcessCallback(_ context.Context, _ *http.Client, _ string, payload []byte) (provider.CallbackOutcome, error) {
	var hook webhookPayload
	if err := json.Unmarshal(payload, &hook); err != nil {
		return provider.CallbackOutcome{}, err
	}

	switch hook.Event {
	case "transcription.success":
		return provider.CallbackOutcome{Done: true, RawResult: hook.Payload}, nil
	case "transcription.error":
		var detail struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(hook.Payload, &detail)
		if detail.Error == "" {
			detail.Error = "transcription failed"
		}
		return provider.CallbackOutcome{ErrorMessage: detail.Error}, nil
	default:
		return provider.CallbackOutcome{}, fmt.Errorf("gladia: unknown callback event %q", hook.Event)
	}
}

var _ provider.CallbackTranscriber = Adapter{}
