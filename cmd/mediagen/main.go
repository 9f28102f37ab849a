// mediagen generates configured versions (thumbnails, previews, copies) of
// media files.
//
// Usage:
//
//	mediagen [--config mediagen.yaml] <command> [options]
//
// Exit codes of make and version:
//   - 0: every version succeeded
//   - 1: at least one version failed
//   - 2: the file could not be detected or the version id is unknown
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "mediagen",
		Usage:          "Generate versions of media files",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"MEDIAGEN_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			makeCommand(),
			versionCommand(),
			watchCommand(),
			filtersCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
