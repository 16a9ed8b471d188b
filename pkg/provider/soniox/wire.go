package soniox

import (
	"encoding/json"
	"sync/atomic"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

type wireToken struct {
	Text       string  `json:"text"`
	StartMS    float64 `json:"start_ms"`
	EndMS      float64 `json:"end_ms"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
	Speaker    *int32  `json:"speaker"`
}

type wireResponse struct {
	Tokens       []wireToken `json:"tokens"`
	Finished     bool        `json:"finished"`
	ErrorCode    int         `json:"error_code"`
	ErrorMessage string      `json:"error_message"`
}

// codec keeps one bit of state: whether a finalize request is outstanding,
// so the flush that answers it can be tagged.
type codec struct {
	pendingFinalize atomic.Bool
}

func (c *codec) EncodeControl(ctl stream.Control) ([]byte, bool) {
	switch ctl {
	case stream.ControlFinalize:
		c.pendingFinalize.Store(true)
		return []byte(`{"type":"finalize"}`), true
	case stream.ControlKeepAlive:
		return []byte(`{"type":"keepalive"}`), true
	case stream.ControlCloseStream:
		// An empty frame tells Soniox the audio is complete.
		return []byte(""), true
	default:
		return nil, false
	}
}

func (c *codec) Decode(data []byte) ([]stream.Event, error) {
	var msg wireResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	if msg.ErrorCode != 0 || msg.ErrorMessage != "" {
		return []stream.Event{stream.ErrorEvent{Message: msg.ErrorMessage}}, nil
	}

	var events []stream.Event
	finals, partials := splitTokens(msg.Tokens)

	if len(finals) > 0 {
		ev := tokensToEvent(finals, true)
		if c.pendingFinalize.Swap(false) {
			ev.FromFinalize = true
		}
		events = append(events, ev)
	}
	if len(partials) > 0 {
		events = append(events, tokensToEvent(partials, false))
	}
	if msg.Finished {
		events = append(events, stream.EndedEvent{})
	}
	return events, nil
}

func splitTokens(tokens []wireToken) (finals, partials []wireToken) {
	for _, tok := range tokens {
		if tok.IsFinal {
			finals = append(finals, tok)
		} else {
			partials = append(partials, tok)
		}
	}
	return finals, partials
}

func tokensToEvent(tokens []wireToken, final bool) stream.TranscriptEvent {
	alt := stream.Alternative{Words: make([]stream.Word, 0, len(tokens))}
	sum := 0.0
	for i, tok := range tokens {
		if i > 0 {
			alt.Transcript += " "
		}
		alt.Transcript += tok.Text
		sum += tok.Confidence
		alt.Words = append(alt.Words, stream.Word{
			Word:       tok.Text,
			Start:      tok.StartMS / 1000,
			End:        tok.EndMS / 1000,
			Confidence: tok.Confidence,
			Speaker:    tok.Speaker,
		})
	}
	if len(tokens) > 0 {
		alt.Confidence = sum / float64(len(tokens))
	}
	return stream.TranscriptEvent{
		Alternatives: []stream.Alternative{alt},
		IsFinal:      final,
		SpeechFinal:  final,
	}
}
