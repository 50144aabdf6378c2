package export

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceNotFound          = errors.New("source video not found")
	ErrSegmentExtractionFailed = errors.New("segment extraction failed")
	ErrEncodeFailed            = errors.New("encode failed")
	ErrInvalidClip             = errors.New("invalid audio clip")
	ErrExportInFlight          = errors.New("export already in progress")
	ErrInvalidTrim             = errors.New("invalid trim window")
)

// SourceNotFoundError lists every location tried for a video locator.
type SourceNotFoundError struct {
	RequestedPath string
	Attempted     []string
	Cause         error
}

func (e *SourceNotFoundError) Error() string {
	msg := fmt.Sprintf("video %q not found (tried %s)", e.RequestedPath, strings.Join(e.Attempted, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SourceNotFoundError) Unwrap() error { return ErrSourceNotFound }

// StageError is a failed external tool invocation.
type StageError struct {
	Stage      string
	Command    string
	StderrTail string
	ExitCode   int
	sentinel   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (exit %d)", e.Stage, e.ExitCode)
}

func (e *StageError) Unwrap() error { return e.sentinel }

// InvalidClipError names a clip dropped from an export request.
type InvalidClipError struct {
	ClipID string
	Reason string
}

func (e *InvalidClipError) Error() string {
	return fmt.Sprintf("audio clip %q: %s", e.ClipID, e.Reason)
}

func (e *InvalidClipError) Unwrap() error { return ErrInvalidClip }
