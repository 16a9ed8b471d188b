package gladia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConnectionTargetOwnHostKeepsPort(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("https://api.gladia.io:8443")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "wss://api.gladia.io:8443/v2/live" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
	if len(tgt.Params) != 0 {
		t.Fatalf("expected no params, got %v", tgt.Params)
	}
}

func TestSubmitCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/pre-recorded" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-gladia-key") != "key" {
			t.Errorf("missing gladia key header")
		}
		w.Write([]byte(`{"id":"gl_9"}`))
	}))
	defer srv.Close()

	a := Adapter{APIBase: srv.URL}
	id, err := a.SubmitCallback(context.Background(), srv.Client(), "key", "https://bucket/a.wav", "https://app/cb")
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if id != "gl_9" {
		t.Fatalf("unexpected id: %s", id)
	}
}

func TestProcessCallbackSuccessCarriesPayload(t *testing.T) {
	out, err := Adapter{}.ProcessCallback(context.Background(), nil, "",
		[]byte(`{"id":"gl_9","event":"transcription.success","payload":{"full_transcript":"hi"}}`))
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if !out.Done || string(out.RawResult) != `{"full_transcript":"hi"}` {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestProcessCallbackError(t *testing.T) {
	out, err := Adapter{}.ProcessCallback(context.Background(), nil, "",
		[]byte(`{"id":"gl_9","event":"transcription.error","payload":{"error":"unreachable audio_url"}}`))
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if out.Done || out.ErrorMessage != "unreachable audio_url" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestProcessCallbackUnknownEvent(t *testing.T) {
	_, err := Adapter{}.ProcessCallback(context.Background(), nil, "", []byte(`{"event":"nope"}`))
	if err == nil {
		t.Fatalf("expected error for unknown event")
	}
}
