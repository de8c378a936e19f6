package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed caller input such as an empty twin name.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a twin id is not registered.
	ErrNotFound = errors.New("not found")
)

// FetchKind classifies a single failed fetch.
type FetchKind string

const (
	FetchKindTransport FetchKind = "transport"
	FetchKindDecode    FetchKind = "decode"
)

// FetchError describes one failed exchange with the telemetry source.
type FetchError struct {
	Kind   FetchKind
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TerminalFailure is returned once the retry budget of a poll cycle is exhausted.
type TerminalFailure struct {
	Attempts int
	LastErr  error
}

func (e *TerminalFailure) Error() string {
	return fmt.Sprintf("acquisition failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *TerminalFailure) Unwrap() error {
	return e.LastErr
}
