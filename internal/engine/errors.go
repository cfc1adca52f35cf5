package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleContext is returned when a response arrives for a list that is no
	// longer the active one. The response is discarded.
	ErrStaleContext = errors.New("stale response: active list changed")

	ErrNoList          = errors.New("no list is open")
	ErrTargetGone      = errors.New("item no longer exists locally")
	ErrRefreshInFlight = errors.New("refresh already in flight")

	errSuspended = errors.New("refresh suspended during interaction")
)

// NetworkError means the request did not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("network failure: %v", e.Err)
	}
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectedError means the remote store answered with a non-success status
// (stale target, validation error, unknown list).
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rejected"
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
