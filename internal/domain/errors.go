package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors of the engine's failure taxonomy. Per-asset failures
// (transcript, mux, transient network) are isolated and recorded; auth and
// state corruption abort the whole run.
var (
	// ErrAuth means the remote session rejected authentication. Fatal
	// for the run: retrying per-asset would only hammer the login page.
	ErrAuth = errors.New("authentication rejected")

	// ErrTranscriptUnavailable means the remote has no transcript for an
	// asset. Recorded, never fatal.
	ErrTranscriptUnavailable = errors.New("transcript not available")

	// ErrCorruptState means the persisted progress store could not be
	// read. The operator decides between discard-and-restart and abort;
	// the engine never silently drops progress data.
	ErrCorruptState = errors.New("corrupt progress store")
)

// TransientError wraps a failure worth retrying with backoff: network
// timeouts, rate-limit responses, a wedged driver subprocess.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// MuxError reports a failed video assembly. The partial output has already
// been discarded by the artifact writer when this is returned.
type MuxError struct {
	Output string // final path the mux was producing
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("mux failed for %s: %v", e.Output, e.Err)
}

func (e *MuxError) Unwrap() error {
	return e.Err
}
