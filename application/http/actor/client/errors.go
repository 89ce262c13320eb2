package client

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrHostResolution = errors.New("host resolution failed")

// TooManyRedirectsError is returned when a response still redirects after
// Limit redirects were followed.
type TooManyRedirectsError struct {
	URL   string
	Limit uint
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("too many redirects: %s still redirects after %d hops", e.URL, e.Limit)
}

// ConnectionError is returned when every attempt of an exchange failed.
type ConnectionError struct {
	URL      string
	Attempts uint
	// Err is the failure of the last attempt.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
