// Package resilience wraps outbound provider calls with retry and
// circuit-breaking. Rate limits and upstream 5xx responses are transient;
// auth and client errors are not worth repeating.
package resilience

import (
	"context"
	"net/http"
	"time"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
)

// Transient reports whether err is worth retrying: a rate limit or an
// upstream server error. Anything without an HTTP status, or with a 4xx
// other than 429, is permanent.
func Transient(err error) bool {
	status := errorsx.StatusOf(err)
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// RetryPolicy retries transient failures with a fixed backoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds, fails permanently, exhausts the retry
// budget, or ctx ends. The last error is returned.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; ; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if i >= r.MaxRetries || !Transient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(r.Backoff):
		}
	}
}
