package dashscope

import (
	"encoding/json"
	"sync/atomic"

	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

type wireHeader struct {
	Action       string `json:"action,omitempty"`
	Event        string `json:"event,omitempty"`
	TaskID       string `json:"task_id"`
	Streaming    string `json:"streaming,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type wireWord struct {
	Text      string  `json:"text"`
	BeginTime float64 `json:"begin_time"`
	EndTime   float64 `json:"end_time"`
}

type wireSentence struct {
	Text        string     `json:"text"`
	BeginTime   float64    `json:"begin_time"`
	EndTime     float64    `json:"end_time"`
	SentenceEnd bool       `json:"sentence_end"`
	Words       []wireWord `json:"words"`
}

type wirePayload struct {
	Output struct {
		Sentence wireSentence `json:"sentence"`
	} `json:"output"`
}

type wireMessage struct {
	Header  wireHeader      `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// codec speaks the task envelope protocol: every frame carries a header with
// the task id issued at open. A finalize request maps to finish-task, which
// flushes the trailing sentence as a final before task-finished arrives.
type codec struct {
	taskID          string
	pendingFinalize atomic.Bool
}

func newCodec(taskID string) *codec { return &codec{taskID: taskID} }

type taskRequest struct {
	Header  wireHeader     `json:"header"`
	Payload map[string]any `json:"payload"`
}

func (c *codec) runTask(model string, sampleRate uint32, langs []string) taskRequest {
	hints := make([]string, 0, len(langs))
	for _, lang := range langs {
		if norm := language.Normalize(lang); norm != "" {
			hints = append(hints, norm)
		}
	}
	params := map[string]any{
		"format":      "pcm",
		"sample_rate": sampleRate,
	}
	if len(hints) > 0 {
		params["language_hints"] = hints
	}
	return taskRequest{
		Header: wireHeader{
			Action:    "run-task",
			TaskID:    c.taskID,
			Streaming: "duplex",
		},
		Payload: map[string]any{
			"model":      model,
			"task_group": "audio",
			"task":       "asr",
			"function":   "recognition",
			"parameters": params,
			"input":      map[string]any{},
		},
	}
}

func (c *codec) EncodeControl(ctl stream.Control) ([]byte, bool) {
	switch ctl {
	case stream.ControlFinalize, stream.ControlCloseStream:
		if ctl == stream.ControlFinalize {
			c.pendingFinalize.Store(true)
		}
		frame, err := json.Marshal(taskRequest{
			Header: wireHeader{Action: "finish-task", TaskID: c.taskID},
			Payload: map[string]any{
				"input": map[string]any{},
			},
		})
		if err != nil {
			return nil, false
		}
		return frame, true
	default:
		return nil, false
	}
}

func (c *codec) Decode(data []byte) ([]stream.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	switch msg.Header.Event {
	case "task-started":
		return []stream.Event{stream.MetadataEvent{RequestID: msg.Header.TaskID}}, nil
	case "result-generated":
		var payload wirePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, err
		}
		return []stream.Event{c.sentenceEvent(payload.Output.Sentence)}, nil
	case "task-finished":
		return []stream.Event{stream.EndedEvent{}}, nil
	case "task-failed":
		return []stream.Event{stream.ErrorEvent{Message: msg.Header.ErrorMessage}}, nil
	default:
		return nil, nil
	}
}

func (c *codec) sentenceEvent(s wireSentence) stream.TranscriptEvent {
	alt := stream.Alternative{Transcript: s.Text}
	for _, w := range s.Words {
		alt.Words = append(alt.Words, stream.Word{
			Word:  w.Text,
			Start: w.BeginTime / 1000,
			End:   w.EndTime / 1000,
		})
	}
	ev := stream.TranscriptEvent{
		Alternatives: []stream.Alternative{alt},
		IsFinal:      s.SentenceEnd,
		SpeechFinal:  s.SentenceEnd,
	}
	if s.SentenceEnd && c.pendingFinalize.Swap(false) {
		ev.FromFinalize = true
	}
	return ev
}
