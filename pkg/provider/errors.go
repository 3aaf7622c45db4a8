package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a provider failure. Every adapter failure maps to exactly
// one kind so the layers above never branch on provider-specific errors.
type Kind string

const (
	KindAuthenticationFailure Kind = "authentication_failure"
	KindRateLimited           Kind = "rate_limited"
	KindTimeout               Kind = "timeout"
	KindInvalidRequest        Kind = "invalid_request"
	KindUpstreamUnavailable   Kind = "upstream_unavailable"
)

// Error is a normalized provider failure. Message holds a truncated upstream
// diagnostic; adapters never put credentials in it.
type Error struct {
	Kind       Kind
	Provider   string
	Model      string
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the next fallback candidate should be attempted.
// All kinds except InvalidRequest are worth a different model; a request the
// upstream rejected as malformed will be rejected again.
func (e *Error) Retryable() bool {
	return e.Kind != KindInvalidRequest
}

// AsError unwraps err into a *Error if it is one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or "" for non-provider errors.
func KindOf(err error) Kind {
	if pe, ok := AsError(err); ok {
		return pe.Kind
	}
	return ""
}

const maxDiagnosticLen = 200

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthenticationFailure
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	}
	if status >= 500 {
		return KindUpstreamUnavailable
	}
	return KindInvalidRequest
}

// statusError builds a *Error from a non-2xx upstream response.
func statusError(providerName, model string, status int, body []byte) *Error {
	return &Error{
		Kind:       classifyStatus(status),
		Provider:   providerName,
		Model:      model,
		StatusCode: status,
		Message:    truncateDiagnostic(string(body)),
	}
}

// transportError builds a *Error from a transport-level failure. Context
// deadline expiry and net timeouts classify as Timeout; everything else as
// UpstreamUnavailable.
func transportError(providerName, model string, err error) *Error {
	kind := KindUpstreamUnavailable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{
		Kind:     kind,
		Provider: providerName,
		Model:    model,
		Message:  truncateDiagnostic(err.Error()),
		cause:    err,
	}
}

func truncateDiagnostic(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxDiagnosticLen {
		s = s[:maxDiagnosticLen]
	}
	return s
}
