package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/metrics"
	"github.com/fruitsalade/mediagen/internal/report"
	"github.com/fruitsalade/mediagen/internal/watcher"
	"github.com/fruitsalade/mediagen/internal/worker"
)

var jsonFlag = &cli.BoolFlag{Name: "json", Usage: "print one JSON object per version"}

func format(c *cli.Context) report.Format {
	if c.Bool("json") {
		return report.FormatJSON
	}
	return report.FormatText
}

func makeCommand() *cli.Command {
	return &cli.Command{
		Name:      "make",
		Usage:     "Generate every configured version of the given files",
		ArgsUsage: "<file>...",
		Flags:     []cli.Flag{jsonFlag},
		Action:    makeAction,
	}
}

func makeAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("make: at least one file is required", report.ExitAborted)
	}
	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := c.App.Writer
	code := report.ExitOK
	p := svc.processor(func(path string, result generator.BatchResult, err error) {
		var werr error
		if err != nil {
			werr = report.WriteAbort(out, format(c), path, err)
		} else {
			werr = report.Write(out, format(c), result)
		}
		if werr != nil {
			logging.Warn("write report", zap.Error(werr))
		}
		code = max(code, report.ExitCode(result, err))
	})
	for _, path := range c.Args().Slice() {
		p.Process(c.Context, path)
	}
	if code != report.ExitOK {
		return cli.Exit("", code)
	}
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:      "version",
		Usage:     "Generate a single version of a file",
		ArgsUsage: "<file> <version-id>",
		Flags:     []cli.Flag{jsonFlag},
		Action:    versionAction,
	}
}

func versionAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("version: expected <file> <version-id>", report.ExitAborted)
	}
	path, id := c.Args().Get(0), c.Args().Get(1)

	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	file, err := svc.gen.Open(path)
	if err == nil {
		var outcome generator.Outcome
		outcome, err = svc.gen.MakeNamed(c.Context, file.Path, id)
		if err == nil {
			result := generator.BatchResult{File: file, Outcomes: []generator.Outcome{outcome}}
			svc.record(c.Context, result)
			if err := report.Write(c.App.Writer, format(c), result); err != nil {
				return err
			}
			if code := report.ExitCode(result, nil); code != report.ExitOK {
				return cli.Exit("", code)
			}
			return nil
		}
	}
	if err := report.WriteAbort(c.App.Writer, format(c), path, err); err != nil {
		return err
	}
	return cli.Exit("", report.ExitAborted)
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch a directory and generate versions of new or changed files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "initial", Usage: "also process files already present"},
		},
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	cfg := svc.cfg

	dir := c.Args().First()
	if dir == "" {
		dir = cfg.Settings.BaseDirectory
	}
	if dir == "" {
		dir = "."
	}
	filterRoot, err := cfg.Settings.FilterRoot()
	if err != nil {
		return fmt.Errorf("resolve filter directory: %w", err)
	}

	w, err := watcher.New(dir, cfg.WatchInterval, filterRoot)
	if err != nil {
		return err
	}
	existing, err := w.Start()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	processor := svc.processor(nil)
	pool := worker.NewPool(cfg.Workers, cfg.QueueSize, processor.Process)
	pool.Start(ctx)

	if c.Bool("initial") {
		for _, path := range existing {
			pool.Enqueue(path)
		}
		logging.Info("enqueued existing files", zap.Int("count", len(existing)))
	}

	logging.Info("watching",
		zap.String("dir", dir),
		zap.String("filters", filterRoot),
		zap.Duration("interval", cfg.WatchInterval))
	w.Run(ctx, func(ev watcher.Event) {
		if ev.Type == watcher.EventDelete {
			logging.Debug("source removed", zap.String("path", ev.Path))
			return
		}
		pool.Enqueue(ev.Path)
	})

	logging.Info("shutting down")
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsServer.Shutdown(shutdownCtx)
}

func filtersCommand() *cli.Command {
	return &cli.Command{
		Name:  "filters",
		Usage: "Print the loaded filter configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "only this category"},
		},
		Action: filtersAction,
	}
}

func filtersAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer logging.Sync()

	filters := cfg.Filters
	if cat := c.String("category"); cat != "" {
		if len(filters.Versions(cat)) == 0 {
			return cli.Exit(fmt.Sprintf("no versions configured for category %q", cat), 1)
		}
		filters = filters.Only(cat)
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(filters); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	root, err := cfg.Settings.FilterRoot()
	if err == nil {
		fmt.Fprintf(c.App.ErrWriter, "# versions are written below %s\n", filepath.Clean(root))
	}
	return nil
}
