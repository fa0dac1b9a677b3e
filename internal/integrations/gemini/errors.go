package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMissingAPIKey means no key source produced a key.
var ErrMissingAPIKey = errors.New("gemini: API key is not configured")

// ProviderError captures a non-2xx response from the generateContent endpoint.
// Message is the provider's human-readable error text, empty if the body had
// none.
type ProviderError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d: %s", e.StatusCode, e.MessageOrDefault())
}

func (e *ProviderError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *ProviderError) MessageOrDefault() string {
	if e.Message == "" {
		return "Unknown error"
	}
	return e.Message
}

// TransportError is a failure to get any HTTP response from the provider.
type TransportError struct {
	Err     error
	Timeout bool
}

func newTransportError(err error) *TransportError {
	te := &TransportError{Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		te.Timeout = true
	}
	return te
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("gemini: request timed out: %v", e.Err)
	}
	return fmt.Sprintf("gemini: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CredentialError wraps any failure to obtain an API key.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("gemini: resolve API key: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
