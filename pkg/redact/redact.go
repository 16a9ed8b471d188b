// Package redact masks credentials and personal data before values reach
// log output. Emitted transcript data is never altered, only what gets
// logged.
package redact

import (
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
)

var piiEnabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// secretParams are query keys whose values must never be logged.
var secretParams = []string{"secret", "api_key", "apikey", "token", "key"}

// SetPIIEnabled toggles email and phone masking in transcript logging.
func SetPIIEnabled(v bool) {
	piiEnabled.Store(v)
}

// PIIEnabled reports whether transcript masking is active.
func PIIEnabled() bool {
	return piiEnabled.Load()
}

// Text masks emails and phone numbers when PII redaction is enabled.
func Text(in string) string {
	if !piiEnabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// URL masks secret-bearing query parameters. Always on, regardless of the
// PII toggle. Unparseable input is returned as-is rather than leaked through
// a partial rewrite.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
