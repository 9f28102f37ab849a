package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/media"
	"github.com/fruitsalade/mediagen/internal/metrics"
)

// ErrUnknownVersion is returned by MakeNamed for an id not configured for
// the file's category.
var ErrUnknownVersion = errors.New("unknown version")

// Outcome is the result of one version.
type Outcome struct {
	Version string
	OK      bool

	// Path is the produced file, set on success.
	Path string

	// Err carries one of the failure kinds, set on failure.
	Err      error
	Duration time.Duration
}

// BatchResult holds one outcome per resolved version, in resolution order.
type BatchResult struct {
	File     media.File
	Outcomes []Outcome
}

// Failed returns the failed outcomes.
func (b BatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if !o.OK {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every version succeeded.
func (b BatchResult) OK() bool {
	return len(b.Failed()) == 0
}

// Generator produces versions. It holds no state between calls; the
// configuration it reads is never modified, so one Generator may serve
// concurrent Make calls.
type Generator struct {
	Settings Settings
	Filters  filter.Config
	Adapters *adapter.Registry

	// Detector identifies source files. Nil uses media.Sniff.
	Detector media.Detector
}

// New creates a Generator.
func New(settings Settings, filters filter.Config, adapters *adapter.Registry) *Generator {
	if adapters == nil {
		adapters = adapter.NewRegistry()
	}
	return &Generator{
		Settings: settings,
		Filters:  filters,
		Adapters: adapters,
	}
}

// Open detects the file at path, resolving it against BaseDirectory.
func (g *Generator) Open(path string) (media.File, error) {
	abs, err := g.Settings.resolve(path)
	if err != nil {
		return media.File{}, &Error{Kind: ErrDetect, Path: path, Err: err}
	}
	file, err := media.Open(abs, g.Detector)
	if err != nil {
		return media.File{}, &Error{Kind: ErrDetect, Path: abs, Err: err}
	}
	return file, nil
}

// Make generates every version configured for the category of the file at
// path. Only a detection failure is returned as an error; version failures
// are reported in the result and never stop the remaining versions.
func (g *Generator) Make(ctx context.Context, path string) (BatchResult, error) {
	file, err := g.Open(path)
	if err != nil {
		return BatchResult{}, err
	}
	return g.MakeFile(ctx, file)
}

// MakeFile is Make for an already detected file.
func (g *Generator) MakeFile(ctx context.Context, file media.File) (BatchResult, error) {
	specs, err := Resolve(file.Category, g.Filters, g.Settings)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{File: file, Outcomes: make([]Outcome, 0, len(specs))}
	for _, spec := range specs {
		result.Outcomes = append(result.Outcomes, g.MakeVersion(ctx, file, spec))
	}
	return result, nil
}

// MakeNamed generates the single version id configured for the category of
// the file at path.
func (g *Generator) MakeNamed(ctx context.Context, path, id string) (Outcome, error) {
	file, err := g.Open(path)
	if err != nil {
		return Outcome{}, err
	}
	v, ok := g.Filters.Lookup(file.Category, id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s/%s", ErrUnknownVersion, file.Category, id)
	}
	root, err := g.Settings.FilterRoot()
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve filter directory: %w", err)
	}
	return g.MakeVersion(ctx, file, specFor(root, v)), nil
}

// MakeVersion materializes one version: it provisions spec.Directory, then
// clones the source when the instructions name a clone strategy or runs the
// category's adapter otherwise. A clone instruction overrides all others.
func (g *Generator) MakeVersion(ctx context.Context, file media.File, spec VersionSpec) Outcome {
	start := time.Now()
	mode := "process"
	strategy, clone := spec.Instructions.Clone()
	if clone {
		mode = "clone"
	}

	path, err := g.materialize(ctx, file, spec, strategy, clone)
	out := Outcome{
		Version:  spec.Version,
		OK:       err == nil,
		Path:     path,
		Err:      err,
		Duration: time.Since(start),
	}
	metrics.RecordVersion(file.Category, mode, out.Duration, out.OK)

	if err != nil {
		logging.Warn("generator: version failed",
			zap.String("file", file.Path),
			zap.String("version", spec.Version),
			zap.String("category", file.Category),
			zap.String("directory", spec.Directory),
			zap.Error(err))
		return out
	}
	logging.Debug("generator: version done",
		zap.String("file", file.Path),
		zap.String("version", spec.Version),
		zap.String("mode", mode),
		zap.String("path", path),
		zap.Duration("duration", out.Duration))
	return out
}

func (g *Generator) materialize(ctx context.Context, file media.File, spec VersionSpec, strategy string, clone bool) (string, error) {
	if _, err := EnsureDirectory(spec.Directory, g.Settings); err != nil {
		return "", err
	}
	if clone {
		return Clone(strategy, file.Path, spec.Directory, file.Name())
	}
	return Dispatch(ctx, g.Adapters, file, spec.Instructions, spec.Directory)
}
