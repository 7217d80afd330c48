package binance

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when a signed call is attempted without
// an API key/secret configured.
var ErrMissingCredentials = errors.New("binance: API key/secret required")

// APIError is an exchange-reported failure: a response body carrying a
// nonzero (typically negative) error code. The code is preserved verbatim
// so callers can branch on it.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: [%d] %s", e.Code, e.Message)
}

// TransportError is a connection-level failure (dial, timeout, retryable
// HTTP status) that survived the retry budget. Distinct from APIError so
// callers can tell "exchange said no" from "could not reach exchange".
type TransportError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("binance: %s %s failed after %d attempt(s): %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
