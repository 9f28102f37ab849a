// Package report renders generation results for people and for tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	perrors "github.com/jmgilman/go/errors"

	"github.com/fruitsalade/mediagen/internal/generator"
)

// Exit statuses of the make command.
const (
	ExitOK       = 0
	ExitFailures = 1
	ExitAborted  = 2
)

// Format selects the rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Code maps a version failure to a structured error code.
func Code(err error) perrors.ErrorCode {
	if errors.Is(err, generator.ErrUnknownVersion) {
		return perrors.CodeNotFound
	}
	switch generator.Kind(err) {
	case generator.ErrDirectoryMissing:
		return perrors.CodeNotFound
	case generator.ErrDirectoryCreateFailed:
		if errors.Is(err, fs.ErrPermission) {
			return perrors.CodeForbidden
		}
		return perrors.CodeInternal
	case generator.ErrUnknownCloneStrategy:
		return perrors.CodeInvalidConfig
	case generator.ErrCloneFailed, generator.ErrAdapter:
		return perrors.CodeExecutionFailed
	case generator.ErrNoAdapter:
		return perrors.CodeNotImplemented
	case generator.ErrDetect:
		return perrors.CodeInvalidInput
	}
	return perrors.CodeUnknown
}

// Failure converts a failed outcome to a platform error carrying the
// version and the path the failure concerns.
func Failure(o generator.Outcome) perrors.PlatformError {
	if o.OK || o.Err == nil {
		return nil
	}
	path := o.Path
	var ge *generator.Error
	if errors.As(o.Err, &ge) && ge.Path != "" {
		path = ge.Path
	}
	return perrors.WrapWithContext(o.Err, Code(o.Err), o.Err.Error(), map[string]interface{}{
		"version": o.Version,
		"path":    path,
	})
}

// ErrorBody is the JSON form of a failure.
type ErrorBody struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Classification string                 `json:"classification"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// Line is the JSON form of one outcome.
type Line struct {
	File       string     `json:"file"`
	Category   string     `json:"category"`
	Version    string     `json:"version"`
	OK         bool       `json:"ok"`
	Path       string     `json:"path,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	Error      *ErrorBody `json:"error,omitempty"`
}

func errorBody(err perrors.PlatformError) *ErrorBody {
	if err == nil {
		return nil
	}
	return &ErrorBody{
		Code:           string(err.Code()),
		Message:        err.Message(),
		Classification: string(err.Classification()),
		Context:        err.Context(),
	}
}

// Lines converts result to its JSON lines, in outcome order.
func Lines(result generator.BatchResult) []Line {
	out := make([]Line, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		out = append(out, Line{
			File:       result.File.Path,
			Category:   result.File.Category,
			Version:    o.Version,
			OK:         o.OK,
			Path:       o.Path,
			DurationMS: o.Duration.Milliseconds(),
			Error:      errorBody(Failure(o)),
		})
	}
	return out
}

// Write renders result to w.
func Write(w io.Writer, format Format, result generator.BatchResult) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		for _, l := range Lines(result) {
			if err := enc.Encode(l); err != nil {
				return err
			}
		}
		return nil
	}

	for _, o := range result.Outcomes {
		var err error
		if o.OK {
			_, err = fmt.Fprintf(w, "ok   %s\t%s\t%s\n", o.Version, o.Path, o.Duration.Round(time.Millisecond))
		} else {
			_, err = fmt.Fprintf(w, "FAIL %s\t[%s] %v\n", o.Version, Code(o.Err), o.Err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteAbort renders an error that stopped make before any version ran.
func WriteAbort(w io.Writer, format Format, path string, err error) error {
	if format == FormatJSON {
		pe := perrors.WrapWithContext(err, Code(err), err.Error(), map[string]interface{}{"path": path})
		return json.NewEncoder(w).Encode(Line{File: path, Error: errorBody(pe)})
	}
	_, werr := fmt.Fprintf(w, "FAIL %s\t[%s] %v\n", path, Code(err), err)
	return werr
}

// ExitCode returns the make exit status: ExitAborted when err is set,
// ExitFailures when any version failed.
func ExitCode(result generator.BatchResult, err error) int {
	switch {
	case err != nil:
		return ExitAborted
	case !result.OK():
		return ExitFailures
	}
	return ExitOK
}
