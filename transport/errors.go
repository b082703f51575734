package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the request or resource timeout elapses.
	ErrTimeout = errors.New("transport: timeout")

	// ErrCanceled is returned when the caller's context is canceled.
	ErrCanceled = errors.New("transport: canceled")

	errNoBaseURL = errors.New("no base URL")
	errBadPath   = errors.New("path must not carry a query or fragment")
)

// RequestError reports a descriptor that could not be turned into an HTTP
// request. Nothing was sent.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("transport: %s request: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError reports a response outside 2xx.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Status string
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// classify maps timeouts and cancellation onto the package sentinels and
// leaves every other network error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
