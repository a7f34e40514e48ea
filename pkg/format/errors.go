package format

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds of the format. Every error returned by
// this package matches exactly one of them with errors.Is; the typed errors
// below carry the details and can be extracted with errors.As.
var (
	ErrIO                  = errors.New("i/o error")
	ErrInvalidDimension    = errors.New("invalid dimension")
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")
	ErrParse               = errors.New("malformed descriptor")
	ErrMetadataMismatch    = errors.New("payload size does not match metadata")
	ErrOverflow            = errors.New("payload size overflows")
)

// IOError reports a filesystem failure together with the path that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying error so that checks such as
// errors.Is(err, fs.ErrNotExist) keep working.
func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// DimensionError reports a non-positive axis length.
type DimensionError struct {
	Axis  string
	Value int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("invalid dimension: %s must be positive, got %d", e.Axis, e.Value)
}

// Is reports whether target is ErrInvalidDimension.
func (e *DimensionError) Is(target error) bool { return target == ErrInvalidDimension }

// LimitError reports a payload that would exceed the memory budget.
type LimitError struct {
	Required uint64
	Limit    uint64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded: payload needs %d bytes (%d MiB), limit is %d bytes",
		e.Required, e.Required/(1<<20), e.Limit)
}

// Is reports whether target is ErrMemoryLimitExceeded.
func (e *LimitError) Is(target error) bool { return target == ErrMemoryLimitExceeded }

// ParseError reports a descriptor that is malformed, incomplete or violates
// one of the metadata invariants.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "malformed descriptor"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MismatchError reports a payload whose byte length differs from the length
// derived from the descriptor.
type MismatchError struct {
	Path     string
	Expected uint64
	Actual   uint64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("payload size mismatch for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// Is reports whether target is ErrMetadataMismatch.
func (e *MismatchError) Is(target error) bool { return target == ErrMetadataMismatch }

// ioErr wraps err in an IOError unless it already is one.
func ioErr(op, path string, err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
