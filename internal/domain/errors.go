// Package domain holds the error taxonomy shared by the sync engine.
package domain

import (
	"fmt"
	"strings"
)

const maxBodyInError = 512

// TransportError is returned when the indexer answered with a non-2xx status
// or could not be reached at all (StatusCode 0)
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	body := e.Body
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError] + "..."
	}
	return fmt.Sprintf("transport error: http %d: %s", e.StatusCode, body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProviderError is returned when the indexer answered 2xx but carried an
// API-level error envelope
type ProviderError struct {
	Messages []string
}

func (e *ProviderError) Error() string {
	return "provider error: " + strings.Join(e.Messages, "; ")
}

// MalformedResponseError is returned when a response does not match the
// schema the transform step requires
type MalformedResponseError struct {
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed response: missing %s", e.Field)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// StorageError is returned when the watermark lookup or a batch insert failed
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
