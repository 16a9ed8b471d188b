// Package stream defines the normalized transcript event model every
// provider adapter converges on, plus the control messages and query
// parameters shared by live connections.
package stream

// Word is a single recognized word with provider-reported timing.
// Start and End are seconds on the provider's connection-local clock until
// the listener applies the session offset.
type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int32  `json:"speaker,omitempty"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
}

// Alternative is one hypothesis for a stretch of audio.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Event is the tagged union of everything a live connection can yield.
// Implementations: TranscriptEvent, MetadataEvent, EndedEvent, ErrorEvent,
// TimeoutEvent.
type Event interface {
	event()
}

// TranscriptEvent is a partial or final transcript for one channel.
type TranscriptEvent struct {
	Channel      int               `json:"channel"`
	Alternatives []Alternative     `json:"alternatives"`
	IsFinal      bool              `json:"is_final"`
	FromFinalize bool              `json:"from_finalize"`
	SpeechFinal  bool              `json:"speech_final"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MetadataEvent carries connection-level information such as the provider's
// request id.
type MetadataEvent struct {
	RequestID string `json:"request_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

// EndedEvent signals orderly end of the upstream stream.
type EndedEvent struct{}

// ErrorEvent signals a transport or provider error that terminated the stream.
type ErrorEvent struct {
	Message string `json:"message"`
}

// TimeoutEvent signals that the read watchdog elapsed.
type TimeoutEvent struct{}

func (TranscriptEvent) event() {}
func (MetadataEvent) event()   {}
func (EndedEvent) event()      {}
func (ErrorEvent) event()      {}
func (TimeoutEvent) event()    {}

// WithOffset returns a copy of the transcript with every word shifted by
// offset seconds. Ordering is preserved; only the numeric bounds move.
func (t TranscriptEvent) WithOffset(offset float64) TranscriptEvent {
	if offset == 0 {
		return t
	}
	out := t
	out.Alternatives = make([]Alternative, len(t.Alternatives))
	for i, alt := range t.Alternatives {
		shifted := alt
		shifted.Words = make([]Word, len(alt.Words))
		for j, w := range alt.Words {
			w.Start += offset
			w.End += offset
			shifted.Words[j] = w
		}
		out.Alternatives[i] = shifted
	}
	return out
}

// WithMetadata returns a copy of the transcript with the given metadata
// entries merged in. The receiver's map is never mutated.
func (t TranscriptEvent) WithMetadata(meta map[string]string) TranscriptEvent {
	if len(meta) == 0 {
		return t
	}
	out := t
	out.Metadata = make(map[string]string, len(t.Metadata)+len(meta))
	for k, v := range t.Metadata {
		out.Metadata[k] = v
	}
	for k, v := range meta {
		out.Metadata[k] = v
	}
	return out
}

// Transcript returns the first alternative's transcript, or "" when empty.
func (t TranscriptEvent) Transcript() string {
	if len(t.Alternatives) == 0 {
		return ""
	}
	return t.Alternatives[0].Transcript
}
