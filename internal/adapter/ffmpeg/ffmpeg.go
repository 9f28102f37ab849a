// Package ffmpeg is the video adapter. Instructions become ffmpeg command
// line options; the transcoded file is produced in a scratch directory and
// streamed to the target when the generator persists it.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmgilman/go/exec"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/media"
)

// Binary is the executable run by the default executor.
const Binary = "ffmpeg"

// Adapter transcodes files with ffmpeg.
type Adapter struct {
	exec exec.Executor

	// Timeout bounds a single ffmpeg run, in time.ParseDuration syntax.
	// Empty means no limit beyond the context.
	Timeout string

	// TempDir holds intermediate output. Empty uses os.TempDir.
	TempDir string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithExecutor replaces the executor. Run receives the ffmpeg arguments
// without the binary name.
func WithExecutor(e exec.Executor) Option {
	return func(a *Adapter) { a.exec = e }
}

// WithTimeout sets Adapter.Timeout.
func WithTimeout(timeout string) Option {
	return func(a *Adapter) { a.Timeout = timeout }
}

// WithTempDir sets Adapter.TempDir.
func WithTempDir(dir string) Option {
	return func(a *Adapter) { a.TempDir = dir }
}

// New creates an Adapter running the ffmpeg binary found on PATH.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		exec: exec.NewWrapper(exec.New(exec.WithInheritEnv(), exec.WithDisableColors()), Binary),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply runs ffmpeg over source. The output container follows the convert
// instruction, else the source extension.
func (a *Adapter) Apply(ctx context.Context, source string, instructions filter.InstructionSet) (adapter.Processed, error) {
	ext := strings.TrimPrefix(filepath.Ext(source), ".")
	if mimeType, ok := instructions.Convert(); ok {
		ext = media.ExtensionByType(mimeType)
		if ext == "" {
			return nil, fmt.Errorf("convert: no container known for %s", mimeType)
		}
	}
	if ext == "" {
		return nil, errors.New("cannot pick an output container for a source without extension")
	}

	tmp, err := os.CreateTemp(a.TempDir, "mediagen-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("create scratch output: %w", err)
	}
	out := tmp.Name()
	tmp.Close()

	args, err := Args(source, out, instructions)
	if err != nil {
		os.Remove(out)
		return nil, err
	}

	// Clone keeps per-run settings off the shared executor.
	run := a.exec.Clone().WithContext(ctx)
	if a.Timeout != "" {
		run = run.WithTimeout(a.Timeout)
	}
	res, err := run.Run(args...)
	if err != nil {
		os.Remove(out)
		return nil, runError(res, err)
	}

	return &File{Path: out, Type: media.TypeByExtension(ext)}, nil
}

// Args builds the ffmpeg command line turning source into out.
//
// fit [w,h] scales down into the box keeping the aspect ratio, frame t grabs
// the single frame at t seconds, and any other name is passed as -name value
// (or a bare -name for a null argument).
func Args(source, out string, instructions filter.InstructionSet) ([]string, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", source}
	var filters []string

	for _, in := range instructions {
		switch in.Name {
		case filter.OpConvert, filter.OpClone:
			continue
		case "fit":
			w, h, err := adapter.Pair(in.Arg)
			if err != nil {
				return nil, fmt.Errorf("fit: %w", err)
			}
			if w <= 0 || h <= 0 {
				return nil, fmt.Errorf("fit: invalid size %dx%d", w, h)
			}
			filters = append(filters, fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h))
		case "frame":
			at, err := adapter.Float(in.Arg)
			if err != nil {
				return nil, fmt.Errorf("frame: %w", err)
			}
			args = append(args, "-ss", fmt.Sprintf("%g", at), "-frames:v", "1")
		case "vf", "filter:v":
			v, err := adapter.String(in.Arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.Name, err)
			}
			filters = append(filters, v)
		default:
			opt, err := option(in)
			if err != nil {
				return nil, err
			}
			args = append(args, opt...)
		}
	}

	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	return append(args, out), nil
}

func option(in filter.Instruction) ([]string, error) {
	flag := "-" + strings.TrimPrefix(in.Name, "-")
	switch v := in.Arg.(type) {
	case nil:
		return []string{flag}, nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := adapter.String(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.Name, err)
			}
			parts = append(parts, s)
		}
		return []string{flag, strings.Join(parts, ":")}, nil
	}
	s, err := adapter.String(in.Arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Name, err)
	}
	return []string{flag, s}, nil
}

// runError turns a failed run into an error carrying ffmpeg's own message.
func runError(res *exec.Result, err error) error {
	var stderr string
	if res != nil {
		stderr = strings.TrimSpace(res.Stderr)
	}
	var execErr *exec.ExecError
	if errors.As(err, &execErr) && stderr == "" {
		stderr = strings.TrimSpace(execErr.Stderr)
	}
	if stderr == "" {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return fmt.Errorf("ffmpeg: %s: %w", lastLine(stderr), err)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// File is ffmpeg output waiting on disk. Close removes it.
type File struct {
	Path string
	Type string
}

// MimeType returns the output type.
func (f *File) MimeType() string { return f.Type }

// WriteTo streams the output file to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	src, err := os.Open(f.Path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}

// Close removes the scratch file.
func (f *File) Close() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
