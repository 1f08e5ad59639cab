package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRequiredField is returned when the request has no URL or no
	// Host header.
	ErrEmptyRequiredField = errors.New("required request field is empty")

	// ErrHostResolution is returned when the Host header does not resolve to
	// any address.
	ErrHostResolution = errors.New("host resolution failed")

	// ErrEmptyResponse is returned when the upstream closes without sending
	// any bytes. Such responses are never cached.
	ErrEmptyResponse = errors.New("upstream returned an empty response")
)

// Stage names a socket operation of the connection sequence.
type Stage string

const (
	StageReadRequest  Stage = "read_request"
	StageConnect      Stage = "connect_upstream"
	StageForward      Stage = "forward_request"
	StageReadResponse Stage = "read_response"
	StageWriteClient  Stage = "write_client"
)

// StageError is a socket error annotated with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
