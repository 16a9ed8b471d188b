package deepgram

import (
	"encoding/json"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

// wireMessage mirrors the Results/Metadata messages on Deepgram's live
// connection.
type wireMessage struct {
	Type         string       `json:"type"`
	ChannelIndex []int        `json:"channel_index"`
	IsFinal      bool         `json:"is_final"`
	SpeechFinal  bool         `json:"speech_final"`
	FromFinalize bool         `json:"from_finalize"`
	Channel      wireChannel  `json:"channel"`
	RequestID    string       `json:"request_id"`
	ModelInfo    *wireModel   `json:"model_info"`
	Description  string       `json:"description"`
	Message      string       `json:"message"`
}

type wireChannel struct {
	Alternatives []wireAlternative `json:"alternatives"`
}

type wireAlternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []wireWord `json:"words"`
}

type wireWord struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int32  `json:"speaker"`
	PunctuatedWord string  `json:"punctuated_word"`
}

type wireModel struct {
	Name string `json:"name"`
}

type codec struct{}

func (codec) EncodeControl(c stream.Control) ([]byte, bool) {
	// Deepgram's control vocabulary is the shared one.
	payload, err := json.Marshal(stream.Message{Type: c})
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (codec) Decode(data []byte) ([]stream.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case "Results":
		channel := 0
		if len(msg.ChannelIndex) > 0 {
			channel = msg.ChannelIndex[0]
		}
		ev := stream.TranscriptEvent{
			Channel:      channel,
			IsFinal:      msg.IsFinal,
			SpeechFinal:  msg.SpeechFinal,
			FromFinalize: msg.FromFinalize,
		}
		for _, alt := range msg.Channel.Alternatives {
			out := stream.Alternative{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
				Words:      make([]stream.Word, 0, len(alt.Words)),
			}
			for _, w := range alt.Words {
				out.Words = append(out.Words, stream.Word{
					Word:           w.Word,
					Start:          w.Start,
					End:            w.End,
					Confidence:     w.Confidence,
					Speaker:        w.Speaker,
					PunctuatedWord: w.PunctuatedWord,
				})
			}
			ev.Alternatives = append(ev.Alternatives, out)
		}
		return []stream.Event{ev}, nil
	case "Metadata":
		model := ""
		if msg.ModelInfo != nil {
			model = msg.ModelInfo.Name
		}
		return []stream.Event{stream.MetadataEvent{RequestID: msg.RequestID, Model: model}}, nil
	case "Error":
		message := msg.Description
		if message == "" {
			message = msg.Message
		}
		return []stream.Event{stream.ErrorEvent{Message: message}}, nil
	default:
		// SpeechStarted, UtteranceEnd and future message kinds carry no
		// transcript content.
		return nil, nil
	}
}
