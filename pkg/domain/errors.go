package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a requirement is empty after trimming.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRequestInFlight is returned when a generation is requested while another
	// generation, reveal or deploy is still outstanding.
	ErrRequestInFlight = errors.New("request in flight")

	// ErrTransport matches every TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrEmptyResult is reported when a generation succeeded without artifacts.
	ErrEmptyResult = errors.New("no artifacts returned")

	// ErrMissingDeployURL is reported when a deploy succeeded without a URL.
	ErrMissingDeployURL = errors.New("no URL returned")

	// ErrNavigationRejected is returned when selecting an artifact not yet in the registry.
	ErrNavigationRejected = errors.New("navigation rejected")

	// ErrDeployNotReady is returned when a deploy is requested outside of the ready state.
	ErrDeployNotReady = errors.New("deploy not ready")

	// ErrSessionNotFound is returned when a session ID cannot be found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned by calls against a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// TransportError describes a failed remote call (network error or non-success status).
type TransportError struct {
	Op     string // "generate" or "deploy"
	Status int    // HTTP status, 0 when the request never got a response
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: server error %d: %s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: server error %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + ErrTransport.Error()
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match any TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
