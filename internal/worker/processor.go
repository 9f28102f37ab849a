package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/mirror"
)

// Recorder persists batch results, e.g. *manifest.Store.
type Recorder interface {
	Record(ctx context.Context, result generator.BatchResult) error
}

// Processor runs Make for a path, then the optional mirror and manifest
// steps. Mirror and Recorder failures are logged and never alter the result.
type Processor struct {
	Generator *generator.Generator
	Mirror    *mirror.Mirror
	Recorder  Recorder

	// OnResult, if set, receives every result, including detection
	// failures as a non-nil err.
	OnResult func(path string, result generator.BatchResult, err error)
}

// Process generates the versions of path.
func (p *Processor) Process(ctx context.Context, path string) {
	result, err := p.Generator.Make(ctx, path)
	if err != nil {
		logging.Warn("worker: make failed", zap.String("path", path), zap.Error(err))
		if p.OnResult != nil {
			p.OnResult(path, result, err)
		}
		return
	}

	p.Mirror.Publish(ctx, result)
	if p.Recorder != nil {
		if err := p.Recorder.Record(ctx, result); err != nil {
			logging.Warn("worker: manifest record failed", zap.String("path", path), zap.Error(err))
		}
	}

	logging.Info("worker: processed",
		zap.String("path", result.File.Path),
		zap.Int("versions", len(result.Outcomes)),
		zap.Int("failed", len(result.Failed())))
	if p.OnResult != nil {
		p.OnResult(path, result, nil)
	}
}
