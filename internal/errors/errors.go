// Package errors defines the stable error taxonomy for the indexer, per
// the propagation policy: fatal errors abort with a diagnostic naming the
// component and job id, recoverable errors are logged and counted.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode (spec §7).
type ErrorCode string

const (
	// ConfigError: invalid CLI, missing compdb, unreadable paths. Fatal at startup.
	ConfigError ErrorCode = "CONFIG_ERROR"
	// IpcError: queue create/open/send/receive failure.
	IpcError ErrorCode = "IPC_ERROR"
	// ParseError: the front-end reported a fatal diagnostic for a TU.
	ParseError ErrorCode = "PARSE_ERROR"
	// JobTimeout: a worker did not respond within the per-job deadline.
	JobTimeout ErrorCode = "JOB_TIMEOUT"
	// WorkerCrash: a worker process exited unexpectedly.
	WorkerCrash ErrorCode = "WORKER_CRASH"
	// MalformedMessage: a peer sent an unparseable IPC payload.
	MalformedMessage ErrorCode = "MALFORMED_MESSAGE"
	// InvariantViolation: a bomb was dropped armed, or a builder was
	// double-finalized. Always a programmer error; always fatal.
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// fatalCodes are the codes that must abort the process immediately rather
// than being logged and counted in IndexingStatistics.
var fatalCodes = map[ErrorCode]bool{
	ConfigError:        true,
	InvariantViolation: true,
}

// IndexerError is the error type returned by every component in this
// module; it carries a stable code so the driver can decide retry policy
// without string-matching messages.
type IndexerError struct {
	Code    ErrorCode
	Message string
	// Component names the subsystem that raised the error (e.g. "driver",
	// "worker", "ipc") for the diagnostic the propagation policy requires.
	Component string
	cause     error
}

// New creates an IndexerError.
func New(code ErrorCode, component, message string) *IndexerError {
	return &IndexerError{Code: code, Component: component, Message: message}
}

// Wrap creates an IndexerError around an underlying cause.
func Wrap(code ErrorCode, component, message string, cause error) *IndexerError {
	return &IndexerError{Code: code, Component: component, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *IndexerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Component, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying cause.
func (e *IndexerError) Unwrap() error {
	return e.cause
}

// Fatal reports whether this error must abort the process rather than be
// logged and retried.
func (e *IndexerError) Fatal() bool {
	return fatalCodes[e.Code]
}

// Code extracts the ErrorCode from any error, returning "" if err is not
// (or does not wrap) an *IndexerError.
func Code(err error) ErrorCode {
	var ie *IndexerError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
