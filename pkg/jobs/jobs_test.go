package jobs

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/language"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/resilience"
)

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
	signErr error
}

func (f *fakeObjects) SignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://bucket.example.com/" + key + "?signed=1", nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

type fakeAdapter struct {
	submitted   []string
	callbackURL string
	submitErr   error
	outcome     provider.CallbackOutcome
}

func (f *fakeAdapter) Name() provider.Name { return provider.AssemblyAI }

func (f *fakeAdapter) LiveSupport(langs []string) language.Support { return language.NotSupported() }

func (f *fakeAdapter) BatchSupport(langs []string) language.Support {
	return language.Supported(language.QualityGood)
}

func (f *fakeAdapter) ConnectionTarget(apiBase string) (provider.Target, error) {
	return provider.Target{}, nil
}

func (f *fakeAdapter) SubmitCallback(ctx context.Context, client *http.Client, apiKey, audioURL, callbackURL string) (string, error) {
	f.submitted = append(f.submitted, audioURL)
	f.callbackURL = callbackURL
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "req_1", nil
}

func (f *fakeAdapter) ProcessCallback(ctx context.Context, client *http.Client, apiKey string, payload []byte) (provider.CallbackOutcome, error) {
	return f.outcome, nil
}

func newTestPipeline(t *testing.T, adapter *fakeAdapter, objects *fakeObjects) *Pipeline {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p, err := NewPipeline(PipelineConfig{
		Store:          store,
		Objects:        objects,
		PublicBaseURL:  "https://app.example.com",
		CallbackSecret: "hunter2",
		Resolve: func(name provider.Name) (provider.CallbackTranscriber, bool) {
			return adapter, true
		},
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestSubmitPersistsProcessingJob(t *testing.T) {
	adapter := &fakeAdapter{}
	objects := &fakeObjects{}
	p := newTestPipeline(t, adapter, objects)

	jobID, err := p.Submit(context.Background(), "u1", provider.AssemblyAI, "uploads/a.wav")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(adapter.submitted) != 1 {
		t.Fatalf("provider not called")
	}
	wantCallback := "https://app.example.com/callback/assemblyai/" + jobID + "?secret=hunter2"
	if adapter.callbackURL != wantCallback {
		t.Fatalf("callback url: got %s want %s", adapter.callbackURL, wantCallback)
	}

	job, err := p.Status(jobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Status != StatusProcessing || job.RequestID != "req_1" || job.UserID != "u1" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestSubmitAbortsOnSignedURLFailure(t *testing.T) {
	adapter := &fakeAdapter{}
	objects := &fakeObjects{signErr: errorsx.Wrap(context.DeadlineExceeded, errorsx.ReasonJobSignedURL)}
	p := newTestPipeline(t, adapter, objects)

	_, err := p.Submit(context.Background(), "u1", provider.AssemblyAI, "uploads/a.wav")
	if !errorsx.HasReason(err, errorsx.ReasonJobSignedURL) {
		t.Fatalf("expected signed url failure, got %v", err)
	}
	if len(adapter.submitted) != 0 {
		t.Fatalf("provider must not be called after signing failed")
	}
}

func TestCallbackCompletesOnceAndCleansUp(t *testing.T) {
	adapter := &fakeAdapter{outcome: provider.CallbackOutcome{Done: true, RawResult: []byte(`{"text":"hi"}`)}}
	objects := &fakeObjects{}
	p := newTestPipeline(t, adapter, objects)

	jobID, err := p.Submit(context.Background(), "u1", provider.AssemblyAI, "uploads/a.wav")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := p.HandleCallback(context.Background(), provider.AssemblyAI, jobID, "hunter2", []byte(`{}`)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	job, _ := p.Status(jobID)
	if job.Status != StatusDone || string(job.RawResult) != `{"text":"hi"}` {
		t.Fatalf("terminal state not recorded: %+v", job)
	}
	if objects.deleteCount() != 1 {
		t.Fatalf("source not cleaned up")
	}

	// Duplicate delivery: no error, no regression, no second cleanup.
	adapter.outcome = provider.CallbackOutcome{Done: false, ErrorMessage: "late failure"}
	if err := p.HandleCallback(context.Background(), provider.AssemblyAI, jobID, "hunter2", []byte(`{}`)); err != nil {
		t.Fatalf("duplicate delivery must be dropped silently: %v", err)
	}
	job, _ = p.Status(jobID)
	if job.Status != StatusDone {
		t.Fatalf("terminal status regressed: %+v", job)
	}
	if objects.deleteCount() != 1 {
		t.Fatalf("cleanup ran twice")
	}
}

func TestCallbackRecordsProviderError(t *testing.T) {
	adapter := &fakeAdapter{outcome: provider.CallbackOutcome{Done: false, ErrorMessage: "audio unreachable"}}
	objects := &fakeObjects{}
	p := newTestPipeline(t, adapter, objects)

	jobID, _ := p.Submit(context.Background(), "u1", provider.AssemblyAI, "uploads/a.wav")
	if err := p.HandleCallback(context.Background(), provider.AssemblyAI, jobID, "hunter2", []byte(`{}`)); err != nil {
		t.Fatalf("delivery: %v", err)
	}
	job, _ := p.Status(jobID)
	if job.Status != StatusError || job.ErrorMsg != "audio unreachable" {
		t.Fatalf("provider error not recorded: %+v", job)
	}
}

func TestCallbackRejectsBadSecretAndUnknownJob(t *testing.T) {
	adapter := &fakeAdapter{outcome: provider.CallbackOutcome{Done: true}}
	p := newTestPipeline(t, adapter, &fakeObjects{})

	err := p.HandleCallback(context.Background(), provider.AssemblyAI, "any", "wrong", []byte(`{}`))
	if !errorsx.HasReason(err, errorsx.ReasonJobSecret) {
		t.Fatalf("bad secret must be rejected, got %v", err)
	}

	err = p.HandleCallback(context.Background(), provider.AssemblyAI, "missing", "hunter2", []byte(`{}`))
	if !errorsx.HasReason(err, errorsx.ReasonJobNotFound) {
		t.Fatalf("unknown job must be NotFound, got %v", err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	p := newTestPipeline(t, &fakeAdapter{}, &fakeObjects{})
	_, err := p.Status("nope")
	if !errorsx.HasReason(err, errorsx.ReasonJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitRetriesTransientAndTripsBreaker(t *testing.T) {
	adapter := &fakeAdapter{submitErr: errorsx.NewUnexpectedStatus("assemblyai", 429, nil)}
	store, err := OpenStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p, err := NewPipeline(PipelineConfig{
		Store:          store,
		Objects:        &fakeObjects{},
		PublicBaseURL:  "https://app.example.com",
		CallbackSecret: "hunter2",
		Retry:          resilience.RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond},
		Resolve: func(name provider.Name) (provider.CallbackTranscriber, bool) {
			return adapter, true
		},
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := p.Submit(ctx, "u1", provider.AssemblyAI, "audio/a.wav"); errorsx.StatusOf(err) != 429 {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	attempts := len(adapter.submitted)
	if attempts != 6 {
		t.Fatalf("expected 2 attempts per submit, got %d total", attempts)
	}

	// Breaker is open after three rate-limited submissions.
	if _, err := p.Submit(ctx, "u1", provider.AssemblyAI, "audio/a.wav"); err == nil {
		t.Fatal("expected fast failure with an open breaker")
	}
	if len(adapter.submitted) != attempts {
		t.Fatalf("open breaker must not reach the provider, attempts now %d", len(adapter.submitted))
	}
}
