package video

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoVideoTrack   = errors.New("no video track")
	ErrReaderCreation = errors.New("failed to create reader")
	ErrWriterCreation = errors.New("failed to create writer")
	ErrInputAdd       = errors.New("failed to attach input")
	ErrOutputAdd      = errors.New("failed to attach output")
	ErrDecode         = errors.New("failed to decode frame")
	ErrEncode         = errors.New("failed to encode frame")

	// ErrCancelled matches context.Canceled as well.
	ErrCancelled = fmt.Errorf("export cancelled: %w", context.Canceled)
)

// StageError records where an export failed. It matches both its kind and
// the underlying cause with errors.Is.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageErr(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
