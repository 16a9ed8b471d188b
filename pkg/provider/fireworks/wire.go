package fireworks

import (
	"encoding/json"
	"sync/atomic"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

type wireSegment struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type wireMessage struct {
	Segments     []wireSegment `json:"segments"`
	CheckpointID string        `json:"checkpoint_id"`
	Error        string        `json:"error"`
}

const finalizeCheckpoint = "finalize"

// codec accumulates the rolling segment state. Segment updates stream as
// partials; the echo of our checkpoint marks everything before it processed,
// at which point the accumulated text is emitted as the finalize-tagged
// final.
type codec struct {
	pendingFinalize atomic.Bool
	segments        []wireSegment
}

func newCodec() *codec { return &codec{} }

func (c *codec) EncodeControl(ctl stream.Control) ([]byte, bool) {
	switch ctl {
	case stream.ControlFinalize:
		c.pendingFinalize.Store(true)
		return []byte(`{"checkpoint_id":"` + finalizeCheckpoint + `"}`), true
	default:
		return nil, false
	}
}

func (c *codec) Decode(data []byte) ([]stream.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	if msg.Error != "" {
		return []stream.Event{stream.ErrorEvent{Message: msg.Error}}, nil
	}

	if msg.CheckpointID != "" {
		ev := c.segmentEvent(true)
		if msg.CheckpointID == finalizeCheckpoint {
			ev.FromFinalize = c.pendingFinalize.Swap(false)
		}
		c.segments = nil
		return []stream.Event{ev}, nil
	}

	if msg.Segments == nil {
		return nil, nil
	}
	c.segments = msg.Segments
	return []stream.Event{c.segmentEvent(false)}, nil
}

func (c *codec) segmentEvent(final bool) stream.TranscriptEvent {
	alt := stream.Alternative{}
	for i, seg := range c.segments {
		if i > 0 {
			alt.Transcript += " "
		}
		alt.Transcript += seg.Text
	}
	return stream.TranscriptEvent{
		Alternatives: []stream.Alternative{alt},
		IsFinal:      final,
		SpeechFinal:  final,
	}
}

type batchWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type batchResponse struct {
	Text     string      `json:"text"`
	Language string      `json:"language"`
	Duration float64     `json:"duration"`
	Words    []batchWord `json:"words"`
}

func (r batchResponse) normalize() *stream.BatchResponse {
	alt := stream.Alternative{Transcript: r.Text}
	for _, w := range r.Words {
		alt.Words = append(alt.Words, stream.Word{
			Word:  w.Word,
			Start: w.Start,
			End:   w.End,
		})
	}
	meta, _ := json.Marshal(map[string]any{
		"language": r.Language,
		"duration": r.Duration,
	})
	return stream.SingleChannel(alt, meta)
}
