package errorsx

import (
	"errors"
	"fmt"
)

// UnexpectedStatusError is returned when a provider HTTP call answers with a
// non-2xx status. The response body is carried verbatim so the caller can
// distinguish causes; credentials never appear in it on our side.
type UnexpectedStatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Body)
}

// NewUnexpectedStatus builds an UnexpectedStatusError tagged with the
// provider status reason code.
func NewUnexpectedStatus(provider string, status int, body []byte) error {
	return Wrap(UnexpectedStatusError{
		Provider: provider,
		Status:   status,
		Body:     string(body),
	}, ReasonProviderStatus)
}

// StatusOf extracts the HTTP status from an error chain, or 0 when the error
// is not an UnexpectedStatusError.
func StatusOf(err error) int {
	var se UnexpectedStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
