package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetworkFailure is matched by every error returned from Client.Get:
// transport failures, timeouts, and non-2xx responses.
var ErrNetworkFailure = errors.New("tmdb network failure")

// FetchError describes a failed upstream request.
type FetchError struct {
	// Path is the request path without host or query (the query carries the api key).
	Path string

	// StatusCode is the upstream status, or 0 when no response was received.
	StatusCode int

	Class ErrorClass
	Err   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("TMDB %s error (status %d) for %s: %v",
			e.Class, e.StatusCode, e.Path, e.Err)
	}
	return fmt.Sprintf("TMDB %s error for %s: %v", e.Class, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes every FetchError match ErrNetworkFailure.
func (e *FetchError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}
