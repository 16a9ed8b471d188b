package stream

import "encoding/json"

// BatchResponse is the one-shot file transcription shape shared by all
// batch-capable adapters.
type BatchResponse struct {
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Results  BatchResults    `json:"results"`
}

// BatchResults groups per-channel results.
type BatchResults struct {
	Channels []BatchChannel `json:"channels"`
}

// BatchChannel holds the hypotheses for one audio channel.
type BatchChannel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// SingleChannel builds a batch response with one channel and one alternative,
// the common case for mono uploads.
func SingleChannel(alt Alternative, metadata json.RawMessage) *BatchResponse {
	return &BatchResponse{
		Metadata: metadata,
		Results: BatchResults{
			Channels: []BatchChannel{{Alternatives: []Alternative{alt}}},
		},
	}
}
