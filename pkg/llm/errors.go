package llm

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned by cloud adapters built without an API key.
var ErrMissingCredential = errors.New("missing credential")

// UpstreamError reports a failed or misconfigured backend call.
type UpstreamError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err is or wraps an *UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func missingCredential(provider string) error {
	return &UpstreamError{Provider: provider, Message: "call rejected", Err: ErrMissingCredential}
}

func transportError(provider string, err error) error {
	return &UpstreamError{Provider: provider, Message: "request failed", Err: err}
}

func statusError(provider string, code int, message string) error {
	return &UpstreamError{Provider: provider, StatusCode: code, Message: message}
}

func decodeError(provider string, err error) error {
	return &UpstreamError{Provider: provider, Message: "invalid response", Err: err}
}
