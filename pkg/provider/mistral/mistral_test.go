package mistral

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/stream"
)

func TestCapabilities(t *testing.T) {
	live := Adapter{}.LiveSupport([]string{"fr"})
	if live.IsSupported() {
		t.Fatalf("no realtime path exists for this backend")
	}
	batch := Adapter{}.BatchSupport([]string{"fr", "de"})
	if !batch.IsSupported() {
		t.Fatalf("batch should serve fr+de: %v", batch)
	}
	batch = Adapter{}.BatchSupport([]string{"fr", "xx"})
	if batch.IsSupported() {
		t.Fatalf("unknown language must dominate: %v", batch)
	}
}

func TestConnectionTargetOwnHost(t *testing.T) {
	tgt, err := Adapter{}.ConnectionTarget("https://api.mistral.ai")
	if err != nil {
		t.Fatalf("connection target error: %v", err)
	}
	if tgt.URL != "wss://api.mistral.ai/v1/audio/transcriptions" {
		t.Fatalf("unexpected url: %s", tgt.URL)
	}
}

func TestTranscribeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer auth")
		}
		if r.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("content type not derived from extension: %s", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "RIFF" {
			t.Errorf("file bytes not posted raw")
		}
		q := r.URL.Query()
		if q.Get("model") != "voxtral-mini-latest" || q.Get("language") != "fr" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte(`{"model":"voxtral-mini-latest","text":"bonjour le monde","language":"fr","segments":[{"text":"bonjour le monde","start":0,"end":1.5}]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := Adapter{}.TranscribeFile(context.Background(), srv.Client(), srv.URL, "key",
		stream.ListenParams{Languages: []string{"fr-FR"}}, path)
	if err != nil {
		t.Fatalf("transcribe error: %v", err)
	}
	alt := resp.Results.Channels[0].Alternatives[0]
	if alt.Transcript != "bonjour le monde" || len(alt.Words) != 1 {
		t.Fatalf("unexpected result: %+v", alt)
	}
}

func TestTranscribeFileUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Adapter{}.TranscribeFile(context.Background(), srv.Client(), srv.URL, "key", stream.ListenParams{}, path)
	if errorsx.StatusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("status not carried: %v", err)
	}
}
