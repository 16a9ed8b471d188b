package elevenlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

func TestConnectionTargetDefault(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "wss://api.elevenlabs.io/v1/speech-to-text/realtime" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
	if len(tgt.Params) != 0 {
		t.Fatalf("expected no params, got %v", tgt.Params)
	}
}

func TestConnectionTargetProxy(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("https://api.hyprnote.com")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "wss://api.hyprnote.com/listen" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
	if tgt.Params.Get("provider") != "elevenlabs" {
		t.Fatalf("missing provider param: %v", tgt.Params)
	}
}

func TestDecodeTranscripts(t *testing.T) {
	c := &codec{}

	events, err := c.Decode([]byte(`{"type":"partial_transcript","text":"hel","words":[{"text":"hel","start":0.1,"end":0.3,"type":"word"}]}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0].(stream.TranscriptEvent)
	if ev.IsFinal || ev.FromFinalize {
		t.Fatalf("partial flagged final: %+v", ev)
	}
	if ev.Alternatives[0].Transcript != "hel" {
		t.Fatalf("unexpected transcript: %q", ev.Alternatives[0].Transcript)
	}

	events, err = c.Decode([]byte(`{"type":"final_transcript","text":"hello there","words":[{"text":"hello","start":0.1,"end":0.4,"type":"word","speaker_id":"speaker_1"},{"text":" ","type":"spacing"},{"text":"there","start":0.5,"end":0.8,"type":"word","speaker_id":"speaker_1"}]}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	ev = events[0].(stream.TranscriptEvent)
	if !ev.IsFinal || !ev.SpeechFinal {
		t.Fatalf("final not flagged: %+v", ev)
	}
	words := ev.Alternatives[0].Words
	if len(words) != 2 {
		t.Fatalf("spacing token not dropped: %+v", words)
	}
	if words[0].Speaker == nil || *words[0].Speaker != 1 {
		t.Fatalf("speaker not parsed: %+v", words[0])
	}
}

func TestFlushTagsNextFinalOnce(t *testing.T) {
	c := &codec{}
	frame, ok := c.EncodeControl(stream.ControlFinalize)
	if !ok || string(frame) != `{"type":"flush"}` {
		t.Fatalf("unexpected flush frame: %q ok=%v", frame, ok)
	}

	events, _ := c.Decode([]byte(`{"type":"final_transcript","text":"a"}`))
	if !events[0].(stream.TranscriptEvent).FromFinalize {
		t.Fatalf("flush answer not tagged")
	}
	events, _ = c.Decode([]byte(`{"type":"final_transcript","text":"b"}`))
	if events[0].(stream.TranscriptEvent).FromFinalize {
		t.Fatalf("tag must not persist past one final")
	}
}

func TestDecodeLifecycle(t *testing.T) {
	c := &codec{}
	events, _ := c.Decode([]byte(`{"type":"session_started","session_id":"s_1"}`))
	if events[0].(stream.MetadataEvent).RequestID != "s_1" {
		t.Fatalf("session id not carried")
	}
	events, _ = c.Decode([]byte(`{"type":"auth_error","error":"invalid api key"}`))
	if events[0].(stream.ErrorEvent).Message != "invalid api key" {
		t.Fatalf("error message not carried")
	}
	events, _ = c.Decode([]byte(`{"type":"session_closed"}`))
	if _, ok := events[0].(stream.EndedEvent); !ok {
		t.Fatalf("expected ended event, got %T", events[0])
	}
}

func TestTranscribeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		q := r.URL.Query()
		if q.Get("model_id") != "scribe_v1" || q.Get("language_code") != "de" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte(`{"language_code":"de","language_probability":0.97,"text":"guten tag","words":[{"text":"guten","start":0,"end":0.4,"type":"word"},{"text":"tag","start":0.5,"end":0.8,"type":"word"}]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := Adapter{}.TranscribeFile(context.Background(), srv.Client(), srv.URL, "key",
		stream.ListenParams{Languages: []string{"de-DE"}}, path)
	if err != nil {
		t.Fatalf("transcribe error: %v", err)
	}
	alt := resp.Results.Channels[0].Alternatives[0]
	if alt.Transcript != "guten tag" || len(alt.Words) != 2 {
		t.Fatalf("unexpected result: %+v", alt)
	}
}
