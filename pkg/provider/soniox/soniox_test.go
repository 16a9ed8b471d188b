package soniox

import (
	"testing"

	"github.com/murmurlabs/verbatim/pkg/stream"
)

func TestConnectionTargetProxyKeepsQuery(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("http://localhost:8787/listen?provider=soniox")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "ws://localhost:8787/listen" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
	if tgt.Params.Get("provider") != "soniox" {
		t.Fatalf("expected provider param, got %v", tgt.Params)
	}
}

func TestConnectionTargetDefault(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "wss://stt-rt.soniox.com/transcribe-websocket" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
	if len(tgt.Params) != 0 {
		t.Fatalf("expected no params, got %v", tgt.Params)
	}
}

func TestDecodeSplitsFinalAndPartialTokens(t *testing.T) {
	c := &codec{}
	data := []byte(`{"tokens":[
		{"text":"hello","start_ms":100,"end_ms":400,"confidence":0.9,"is_final":true},
		{"text":"wor","start_ms":500,"end_ms":700,"confidence":0.5,"is_final":false}
	]}`)
	evs, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	final := evs[0].(stream.TranscriptEvent)
	partial := evs[1].(stream.TranscriptEvent)
	if !final.IsFinal || partial.IsFinal {
		t.Fatalf("final split wrong: %+v %+v", final, partial)
	}
	if final.Alternatives[0].Words[0].Start != 0.1 {
		t.Fatalf("ms not converted to seconds: %+v", final.Alternatives[0].Words[0])
	}
}

func TestFinalizeTagsNextFinalFlush(t *testing.T) {
	c := &codec{}
	if _, ok := c.EncodeControl(stream.ControlFinalize); !ok {
		t.Fatalf("finalize not encodable")
	}
	evs, err := c.Decode([]byte(`{"tokens":[{"text":"done","start_ms":0,"end_ms":100,"confidence":1,"is_final":true}]}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !evs[0].(stream.TranscriptEvent).FromFinalize {
		t.Fatalf("expected finalize tag on flush")
	}
	// only the first flush after the request is tagged
	evs, _ = c.Decode([]byte(`{"tokens":[{"text":"later","start_ms":0,"end_ms":100,"confidence":1,"is_final":true}]}`))
	if evs[0].(stream.TranscriptEvent).FromFinalize {
		t.Fatalf("tag must not persist")
	}
}

func TestDecodeErrorAndFinished(t *testing.T) {
	c := &codec{}
	evs, err := c.Decode([]byte(`{"error_code":401,"error_message":"bad key"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ev, ok := evs[0].(stream.ErrorEvent); !ok || ev.Message != "bad key" {
		t.Fatalf("expected error event, got %+v", evs[0])
	}

	evs, _ = c.Decode([]byte(`{"finished":true}`))
	if _, ok := evs[len(evs)-1].(stream.EndedEvent); !ok {
		t.Fatalf("expected ended event, got %+v", evs)
	}
}

func TestBatchNotSupported(t *testing.T) {
	got := Adapter{}.BatchSupport([]string{"en"})
	if got.IsSupported() {
		t.Fatalf("soniox has no batch path")
	}
}
