package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestIndexerError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *IndexerError
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       Wrap(IpcError, "driver", "send failed", errors.New("broken pipe")),
			wantParts: []string{"IPC_ERROR", "driver", "send failed", "broken pipe"},
		},
		{
			name:      "without cause",
			err:       New(JobTimeout, "driver", "worker 2 did not respond"),
			wantParts: []string{"JOB_TIMEOUT", "driver", "worker 2 did not respond"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestIndexerError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(WorkerCrash, "worker", "exited", cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}

	noCause := New(ParseError, "worker", "diagnostic")
	if noCause.Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestIndexerError_Fatal(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ConfigError, true},
		{InvariantViolation, true},
		{IpcError, false},
		{ParseError, false},
		{JobTimeout, false},
		{WorkerCrash, false},
		{MalformedMessage, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x", "y")
			if err.Fatal() != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", err.Fatal(), tt.fatal)
			}
		})
	}
}

func TestCode(t *testing.T) {
	err := New(MalformedMessage, "ipc", "bad payload")
	if got := Code(err); got != MalformedMessage {
		t.Errorf("Code() = %v, want %v", got, MalformedMessage)
	}

	if got := Code(errors.New("plain error")); got != "" {
		t.Errorf("Code() on plain error = %v, want empty", got)
	}
}
