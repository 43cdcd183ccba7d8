package stt

import (
	"context"
	"errors"
	"fmt"
)

// FailureClass buckets transcription failures for logging and telemetry.
// None of them trigger an automatic retry; the user re-records.
type FailureClass int

const (
	FailureNetwork FailureClass = iota
	FailureAuthorization
	FailureBadRequest
	FailureServer
)

func (c FailureClass) String() string {
	switch c {
	case FailureAuthorization:
		return "authorization"
	case FailureBadRequest:
		return "bad_request"
	case FailureServer:
		return "server"
	}
	return "network"
}

// Failure is a typed transcription error.
type Failure struct {
	Class FailureClass
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("transcription %s failure: %v", f.Class, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify wraps err in a Failure based on the HTTP status code, or
// FailureNetwork when the request never got a response. Context
// cancellation passes through untouched; it is not a failure.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	class := FailureNetwork
	switch {
	case statusCode == 401 || statusCode == 403:
		class = FailureAuthorization
	case statusCode >= 400 && statusCode < 500:
		class = FailureBadRequest
	case statusCode >= 500:
		class = FailureServer
	}
	return &Failure{Class: class, Err: err}
}
