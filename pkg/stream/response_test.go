package stream

import (
	"math"
	"testing"
)

func sampleTranscript() TranscriptEvent {
	return TranscriptEvent{
		Channel: 0,
		Alternatives: []Alternative{{
			Transcript: "hello world again",
			Confidence: 0.92,
			Words: []Word{
				{Word: "hello", Start: 0.1, End: 0.4, Confidence: 0.9},
				{Word: "world", Start: 0.5, End: 0.9, Confidence: 0.95},
				{Word: "again", Start: 1.0, End: 1.3, Confidence: 0.91},
			},
		}},
		IsFinal: true,
	}
}

func TestWithOffsetShiftsByConstant(t *testing.T) {
	orig := sampleTranscript()
	shifted := orig.WithOffset(12.5)

	words := shifted.Alternatives[0].Words
	origWords := orig.Alternatives[0].Words
	if len(words) != len(origWords) {
		t.Fatalf("word count changed: %d != %d", len(words), len(origWords))
	}
	for i, w := range words {
		if w.Word != origWords[i].Word {
			t.Fatalf("word order changed at %d: %s != %s", i, w.Word, origWords[i].Word)
		}
		if math.Abs(w.Start-origWords[i].Start-12.5) > 1e-9 {
			t.Fatalf("start not shifted by constant at %d: %f", i, w.Start)
		}
		if math.Abs(w.End-origWords[i].End-12.5) > 1e-9 {
			t.Fatalf("end not shifted by constant at %d: %f", i, w.End)
		}
	}
	// original untouched
	if orig.Alternatives[0].Words[0].Start != 0.1 {
		t.Fatalf("receiver mutated")
	}
}

func TestWithOffsetZeroIsIdentity(t *testing.T) {
	orig := sampleTranscript()
	same := orig.WithOffset(0)
	if same.Alternatives[0].Words[1].Start != 0.5 {
		t.Fatalf("zero offset altered timing")
	}
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	orig := sampleTranscript()
	tagged := orig.WithMetadata(map[string]string{"channel_mode": "mic_and_speaker"})
	if tagged.Metadata["channel_mode"] != "mic_and_speaker" {
		t.Fatalf("metadata not applied")
	}
	if orig.Metadata != nil {
		t.Fatalf("receiver metadata mutated")
	}
}

func TestListenParamsQuery(t *testing.T) {
	p := ListenParams{
		Model:      "nova-3",
		Channels:   2,
		SampleRate: 16000,
		Languages:  []string{"en", "ko"},
		Keywords:   []string{"verbatim"},
	}
	q := p.Query()
	if q.Get("model") != "nova-3" || q.Get("channels") != "2" || q.Get("sample_rate") != "16000" {
		t.Fatalf("unexpected query: %v", q)
	}
	if langs := q["language"]; len(langs) != 2 || langs[0] != "en" || langs[1] != "ko" {
		t.Fatalf("unexpected languages: %v", q["language"])
	}
}
