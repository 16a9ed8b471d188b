package elevenlabs

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

type wireWord struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type"`
	SpeakerID string  `json:"speaker_id"`
	LogProb   float64 `json:"logprob"`
}

type wireMessage struct {
	Type      string     `json:"type"`
	SessionID string     `json:"session_id"`
	Text      string     `json:"text"`
	Words     []wireWord `json:"words"`
	Error     string     `json:"error"`
}

type batchWord struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type"`
	SpeakerID string  `json:"speaker_id"`
}

type batchResponse struct {
	LanguageCode        string      `json:"language_code"`
	LanguageProbability float64     `json:"language_probability"`
	Text                string      `json:"text"`
	Words               []batchWord `json:"words"`
}

func (r batchResponse) normalize() *stream.BatchResponse {
	alt := stream.Alternative{
		Transcript: r.Text,
		Confidence: r.LanguageProbability,
	}
	for _, w := range r.Words {
		if w.Type == "spacing" {
			continue
		}
		alt.Words = append(alt.Words, stream.Word{
			Word:    w.Text,
			Start:   w.Start,
			End:     w.End,
			Speaker: speakerIndex(w.SpeakerID),
		})
	}
	meta, _ := json.Marshal(map[string]string{"language_code": r.LanguageCode})
	return stream.SingleChannel(alt, meta)
}

// speakerIndex extracts the numeric suffix of ids like "speaker_0".
func speakerIndex(id string) *int32 {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return nil
	}
	n, err := strconv.ParseInt(id[i+1:], 10, 32)
	if err != nil {
		return nil
	}
	v := int32(n)
	return &v
}

// codec tracks an outstanding flush so the final transcript that answers it
// can be tagged.
type codec struct {
	pendingFinalize atomic.Bool
}

func (c *codec) EncodeControl(ctl stream.Control) ([]byte, bool) {
	switch ctl {
	case stream.ControlFinalize:
		c.pendingFinalize.Store(true)
		return []byte(`{"type":"flush"}`), true
	case stream.ControlCloseStream:
		return []byte(`{"type":"end_of_stream"}`), true
	default:
		// The socket stays open on silence; no keepalive frame exists.
		return nil, false
	}
}

func (c *codec) Decode(data []byte) ([]stream.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case "session_started":
		return []stream.Event{stream.MetadataEvent{RequestID: msg.SessionID}}, nil
	case "partial_transcript":
		return []stream.Event{transcriptEvent(msg, false, false)}, nil
	case "final_transcript", "committed_transcript":
		fromFinalize := c.pendingFinalize.Swap(false)
		return []stream.Event{transcriptEvent(msg, true, fromFinalize)}, nil
	case "session_closed":
		return []stream.Event{stream.EndedEvent{}}, nil
	case "error", "auth_error":
		return []stream.Event{stream.ErrorEvent{Message: msg.Error}}, nil
	default:
		return nil, nil
	}
}

func transcriptEvent(msg wireMessage, final, fromFinalize bool) stream.TranscriptEvent {
	alt := stream.Alternative{Transcript: msg.Text}
	for _, w := range msg.Words {
		if w.Type == "spacing" {
			continue
		}
		alt.Words = append(alt.Words, stream.Word{
			Word:       w.Text,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.LogProb,
			Speaker:    speakerIndex(w.SpeakerID),
		})
	}
	return stream.TranscriptEvent{
		Alternatives: []stream.Alternative{alt},
		IsFinal:      final,
		SpeechFinal:  final,
		FromFinalize: fromFinalize,
	}
}
