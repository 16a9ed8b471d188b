package jobs

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murmurlabs/verbatim/pkg/configutil"
	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/metrics"
	"github.com/murmurlabs/verbatim/pkg/provider"
	"github.com/murmurlabs/verbatim/pkg/redact"
	"github.com/murmurlabs/verbatim/pkg/resilience"
)

const defaultSignedURLTTL = time.Hour

// PipelineConfig configures the callback pipeline.
type PipelineConfig struct {
	Store   *Store
	Objects ObjectStore
	// PublicBaseURL is this service's externally reachable base, used to
	// build callback URLs.
	PublicBaseURL string
	// CallbackSecret is the shared secret embedded in callback URLs.
	CallbackSecret string
	// APIKeys maps provider name to credential.
	APIKeys map[provider.Name]string
	// SignedURLTTL bounds how long a provider may fetch the audio.
	// Defaults to one hour.
	SignedURLTTL time.Duration
	// Resolve finds the callback adapter for a name. Defaults to the
	// provider registry.
	Resolve func(name provider.Name) (provider.CallbackTranscriber, bool)
	// Retry governs provider submission retries. Zero values get the
	// package defaults.
	Retry   resilience.RetryPolicy
	Metrics metrics.Observer
	Client  *http.Client
	Logger  *slog.Logger
}

// Pipeline implements submit, callback delivery and status query for
// callback-only backends.
type Pipeline struct {
	cfg    PipelineConfig
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[provider.Name]*resilience.CircuitBreaker
}

// NewPipeline validates the config. A missing store or object store is a
// wiring error; a missing secret or base URL is server misconfiguration
// surfaced per call.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil || cfg.Objects == nil {
		return nil, fmt.Errorf("jobs: pipeline requires a store and an object store")
	}
	cfg.SignedURLTTL = configutil.DurationValue(cfg.SignedURLTTL, defaultSignedURLTTL)
	if cfg.Resolve == nil {
		cfg.Resolve = provider.Callback
	}
	cfg.Retry = resilience.NewRetryPolicy(cfg.Retry.MaxRetries, cfg.Retry.Backoff)
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Pipeline{
		cfg:      cfg,
		client:   client,
		logger:   logging.NewComponentLogger(cfg.Logger, "job_pipeline"),
		breakers: make(map[provider.Name]*resilience.CircuitBreaker),
	}, nil
}

func (p *Pipeline) breaker(name provider.Name) *resilience.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.breakers[name]
	if !ok {
		b = resilience.NewCircuitBreaker(3, 30*time.Second)
		p.breakers[name] = b
	}
	return b
}

// Submit runs the whole submission: signed URL, callback URL, provider
// submit, persist. Any failure aborts the operation.
func (p *Pipeline) Submit(ctx context.Context, userID string, name provider.Name, sourceKey string) (string, error) {
	if p.cfg.PublicBaseURL == "" || p.cfg.CallbackSecret == "" {
		return "", errorsx.Wrap(fmt.Errorf("callback pipeline not configured"), errorsx.ReasonJobConfig)
	}
	adapter, ok := p.cfg.Resolve(name)
	if !ok {
		return "", errorsx.Wrap(fmt.Errorf("%s does not deliver via callback", name), errorsx.ReasonJobSubmit)
	}

	jobID := uuid.NewString()

	audioURL, err := p.cfg.Objects.SignedGetURL(ctx, sourceKey, p.cfg.SignedURLTTL)
	if err != nil {
		return "", err
	}
	callbackURL := fmt.Sprintf("%s/callback/%s/%s?secret=%s",
		p.cfg.PublicBaseURL, name, jobID, url.QueryEscape(p.cfg.CallbackSecret))

	breaker := p.breaker(name)
	if !breaker.Allow() {
		return "", errorsx.Wrap(fmt.Errorf("%s is rate limited, submission paused", name), errorsx.ReasonJobSubmit)
	}
	var requestID string
	err = p.cfg.Retry.Do(ctx, func() error {
		var submitErr error
		requestID, submitErr = adapter.SubmitCallback(ctx, p.client, p.apiKey(name), audioURL, callbackURL)
		return submitErr
	})
	if err != nil {
		breaker.OnError(err)
		return "", errorsx.Wrap(err, errorsx.ReasonJobSubmit)
	}
	breaker.OnSuccess()

	job := &Job{
		ID:        jobID,
		UserID:    userID,
		SourceKey: sourceKey,
		Provider:  string(name),
		Status:    StatusProcessing,
		RequestID: requestID,
	}
	if err := p.cfg.Store.Insert(job); err != nil {
		p.logger.Error("job persistence failed after provider submit",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return "", err
	}

	p.cfg.Metrics.Record(metrics.New("job_submit", 1, "provider", string(name)))
	p.logger.Info("job submitted",
		slog.String("job_id", jobID),
		slog.String("provider", string(name)),
		slog.String("request_id", requestID),
		slog.String("callback_url", redact.URL(callbackURL)))
	return jobID, nil
}

// HandleCallback validates and applies one webhook delivery. The provider's
// own success/failure both count as a processed delivery; only transport,
// secret and lookup problems are errors.
func (p *Pipeline) HandleCallback(ctx context.Context, name provider.Name, jobID, secret string, payload []byte) error {
	if p.cfg.CallbackSecret == "" {
		return errorsx.Wrap(fmt.Errorf("callback secret not configured"), errorsx.ReasonJobConfig)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(p.cfg.CallbackSecret)) != 1 {
		return errorsx.Wrap(fmt.Errorf("callback secret mismatch"), errorsx.ReasonJobSecret)
	}

	job, err := p.cfg.Store.Get(jobID)
	if err != nil {
		return err
	}
	adapter, ok := p.cfg.Resolve(name)
	if !ok {
		return errorsx.Wrap(fmt.Errorf("%s does not deliver via callback", name), errorsx.ReasonJobSubmit)
	}

	outcome, err := adapter.ProcessCallback(ctx, p.client, p.apiKey(name), payload)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonJobSubmit)
	}

	var won bool
	if outcome.Done {
		won, err = p.cfg.Store.Complete(jobID, outcome.RawResult)
	} else {
		won, err = p.cfg.Store.Fail(jobID, outcome.ErrorMessage)
	}
	if err != nil {
		return err
	}
	if !won {
		p.logger.Info("duplicate callback delivery dropped", slog.String("job_id", jobID))
		return nil
	}

	status := StatusDone
	if !outcome.Done {
		status = StatusError
	}
	p.cfg.Metrics.Record(metrics.New("job_callback", 1,
		"provider", string(name), "status", string(status)))
	p.cleanup(ctx, job)
	return nil
}

// Status returns the persisted job verbatim.
func (p *Pipeline) Status(jobID string) (*Job, error) {
	return p.cfg.Store.Get(jobID)
}

// cleanup best-effort deletes the uploaded source. The job's terminal status
// stands regardless.
func (p *Pipeline) cleanup(ctx context.Context, job *Job) {
	if job.SourceKey == "" {
		return
	}
	if err := p.cfg.Objects.Delete(ctx, job.SourceKey); err != nil {
		p.logger.Warn("source cleanup failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) apiKey(name provider.Name) string {
	if p.cfg.APIKeys == nil {
		return ""
	}
	return p.cfg.APIKeys[name]
}
