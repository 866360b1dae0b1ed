package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RequestError reports a failed provider request (transport problem, vendor
// rejection, malformed response). StatusCode is zero when the failure never
// reached a HTTP status.
type RequestError struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (model %s, status %d): %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s request failed (model %s): %v", e.Provider, e.Model, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *RequestError) Unwrap() error { return e.Err }

// TimeoutError reports that a request exceeded its deadline.
type TimeoutError struct {
	Provider string
	Model    string
	Elapsed  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s (model %s)", e.Provider, e.Elapsed, e.Model)
}

// Timeout reports true, following the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// ConvertError maps a provider failure to the package taxonomy: context
// deadline expiry becomes *TimeoutError, everything else *RequestError.
// Errors already belonging to the taxonomy pass through unchanged.
func ConvertError(provider, model string, elapsed time.Duration, err error) error {
	if err == nil {
		return nil
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return err
	}

	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: provider, Model: model, Elapsed: elapsed}
	}

	return &RequestError{Provider: provider, Model: model, Err: err}
}
