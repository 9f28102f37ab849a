package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/adapter/ffmpeg"
	"github.com/fruitsalade/mediagen/internal/adapter/imaging"
	"github.com/fruitsalade/mediagen/internal/config"
	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/manifest"
	"github.com/fruitsalade/mediagen/internal/media"
	"github.com/fruitsalade/mediagen/internal/mirror"
	"github.com/fruitsalade/mediagen/internal/storage"
	"github.com/fruitsalade/mediagen/internal/worker"
)

// services is everything a command needs, built from configuration.
type services struct {
	cfg      *config.Config
	gen      *generator.Generator
	mirror   *mirror.Mirror
	manifest *manifest.Store
	closers  []func() error
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("configuration error: %v", err), 1)
	}
	// Reports go to stdout, so logs go to stderr.
	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: "stderr",
	}); err != nil {
		return nil, fmt.Errorf("logging init: %w", err)
	}
	return cfg, nil
}

// adapters registers the built-in engines.
func adapters(cfg *config.Config) *adapter.Registry {
	reg := adapter.NewRegistry()

	img := imaging.New()
	img.Quality = cfg.ImageQuality
	reg.Register(media.CategoryImage, img)

	var opts []ffmpeg.Option
	if cfg.FFmpegTimeout != "" {
		opts = append(opts, ffmpeg.WithTimeout(cfg.FFmpegTimeout))
	}
	reg.Register(media.CategoryVideo, ffmpeg.New(opts...))
	return reg
}

func newServices(c *cli.Context) (*services, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc := &services{
		cfg: cfg,
		gen: generator.New(cfg.Settings, cfg.Filters, adapters(cfg)),
	}

	ctx := c.Context
	backend, err := storage.Open(ctx, cfg.MirrorBackend, cfg.MirrorConfig)
	if err != nil {
		return nil, fmt.Errorf("mirror backend: %w", err)
	}
	if backend != nil {
		svc.mirror = mirror.New(backend)
		svc.closers = append(svc.closers, backend.Close)
		logging.Info("mirror enabled", zap.String("backend", backend.Type()))
	}

	if cfg.DatabaseURL != "" {
		store, err := manifest.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("manifest: %w", err)
		}
		svc.closers = append(svc.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			svc.Close()
			return nil, fmt.Errorf("manifest: %w", err)
		}
		svc.manifest = store
	}
	return svc, nil
}

// processor wires the generator with the optional mirror and manifest.
func (svc *services) processor(onResult func(string, generator.BatchResult, error)) *worker.Processor {
	p := &worker.Processor{
		Generator: svc.gen,
		Mirror:    svc.mirror,
		OnResult:  onResult,
	}
	if svc.manifest != nil {
		p.Recorder = svc.manifest
	}
	return p
}

// record runs the mirror and manifest steps for a result produced outside
// the processor.
func (svc *services) record(ctx context.Context, result generator.BatchResult) {
	svc.mirror.Publish(ctx, result)
	if svc.manifest == nil {
		return
	}
	if err := svc.manifest.Record(ctx, result); err != nil {
		logging.Warn("manifest record failed", zap.String("path", result.File.Path), zap.Error(err))
	}
}

func (svc *services) Close() error {
	var errs []error
	for i := len(svc.closers) - 1; i >= 0; i-- {
		errs = append(errs, svc.closers[i]())
	}
	svc.closers = nil
	logging.Sync()
	return errors.Join(errs...)
}
