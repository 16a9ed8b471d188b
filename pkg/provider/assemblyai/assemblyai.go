// Package assemblyai adapts AssemblyAI's async transcript API. Results only
// arrive through a webhook; the webhook payload carries the transcript id and
// the full result is fetched back from the API.
package assemblyai

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

const defaultAPIBase = "https://api.assemblyai.com"

var endpoint = provider.Endpoint{
	DefaultHost: "streaming.assemblyai.com",
	Domain:      "assemblyai.com",
	Path:        "/v3/ws",
}

var batchLanguages = map[string]language.Quality{
	"en": language.QualityExcellent,
	"es": language.QualityHigh,
	"fr": language.QualityHigh,
	"de": language.QualityHigh,
	"it": language.QualityHigh,
	"pt": language.QualityHigh,
	"nl": language.QualityGood,
	"hi": language.QualityGood,
	"ja": language.QualityGood,
	"zh": language.QualityGood,
	"fi": language.QualityGood,
	"ko": language.QualityGood,
	"pl": language.QualityGood,
	"ru": language.QualityGood,
	"tr": language.QualityGood,
	"uk": language.QualityGood,
	"vi": language.QualityGood,
}

// Adapter's zero value talks to the public API; APIBase is overridable for
// self-hosted gateways.
type Adapter struct {
	APIBase string
}

func (a Adapter) base() string {
	if a.APIBase != "" {
		return a.APIBase
	}
	return defaultAPIBase
}

func (Adapter) Name() provider.Name { return provider.AssemblyAI }

// The live surface is not wired here; sessions that need realtime pick
// another backend.
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
	return endpoint.Resolve(provider.AssemblyAI, base)
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	WebhookURL    string `json:"webhook_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// webhookPayload is what AssemblyAI POSTs to the callback url.
type webhookPayload struct {
	TranscriptID string `json:"transcript_id"`
	Status       string `json:"status"`
}

func (a Adapter) SubmitCallback(ctx context.Context, client *http.Client, apiKey, audioURL, callbackURL string) (string, error) {
	payload, err := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		WebhookURL:    callbackURL,
		SpeakerLabels: true,
	})
	if err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("Authorization", apiKey)

	body, err := provider.PostJSON(ctx, client, provider.AssemblyAI, a.base()+"/v2/transcript", header, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("assemblyai: submit response missing id")
	}
	return resp.ID, nil
}

func (a Adapter) ProcessCallback(ctx context.Context, client *http.Client, apiKey string, payload []byte) (provider.CallbackOutcome, error) {
	var hook webhookPayload
	if err := json.Unmarshal(payload, &hook); err != nil {
		return provider.CallbackOutcome{}, err
	}
	if hook.TranscriptID == "" {
		return provider.CallbackOutcome{}, fmt.Errorf("assemblyai: callback missing transcript_id")
	}

	header := http.Header{}
	header.Set("Authorization", apiKey)

	raw, err := provider.GetJSON(ctx, client, provider.AssemblyAI, a.base()+"/v2/transcript/"+hook.TranscriptID, header)
	if err != nil {
		return provider.CallbackOutcome{}, err
	}

	var result struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return provider.CallbackOutcome{}, err
	}
	if result.Status == "error" {
		return provider.CallbackOutcome{ErrorMessage: result.Error}, nil
	}
	return provider.CallbackOutcome{Done: true, RawResult: raw}, nil
}

var _ provider.CallbackTranscriber = Adapter{}
