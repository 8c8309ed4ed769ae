package archive

import (
	"errors"
	"fmt"
)

type Kind int

const (
	InvalidSource Kind = iota + 1
	WriteFailure
)

var (
	ErrInvalidSource = errors.New("invalid source directory")
	ErrWriteFailure  = errors.New("archive write failure")
)

func (k Kind) String() string {
	switch k {
	case InvalidSource:
		return "invalid_source"
	case WriteFailure:
		return "write_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	if k == InvalidSource {
		return ErrInvalidSource
	}
	return ErrWriteFailure
}

// Error is the terminal error of a run. errors.Is matches both the kind
// sentinel and the underlying cause.
//
// InvalidSource is returned by Start when the source is missing or not a
// directory. It is also the outcome, through Task.Wait, of a source tree that
// cannot be walked during the counting pass (an unreadable subdirectory);
// Err then carries the underlying fs error.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}
