package generator

import (
	"errors"
	"strings"
)

// Failure kinds. Every version failure wraps exactly one of them.
var (
	ErrDirectoryMissing      = errors.New("target directory missing")
	ErrDirectoryCreateFailed = errors.New("target directory creation failed")
	ErrUnknownCloneStrategy  = errors.New("unknown clone strategy")
	ErrCloneFailed           = errors.New("clone failed")
	ErrNoAdapter             = errors.New("no adapter for category")
	ErrAdapter               = errors.New("adapter failed")

	// ErrDetect aborts Make before any version is attempted.
	ErrDetect = errors.New("mime detection failed")
)

// Error is a version failure: its kind, the path it concerns and the
// underlying OS or adapter error, if any.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Kind returns the failure kind carried by err, or nil.
func Kind(err error) error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	for _, k := range []error{
		ErrDirectoryMissing, ErrDirectoryCreateFailed, ErrUnknownCloneStrategy,
		ErrCloneFailed, ErrNoAdapter, ErrAdapter, ErrDetect,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
