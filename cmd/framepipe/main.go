// Package main provides the CLI entry point for framepipe.
package main

import (
	"fmt"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/ports"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framepipe",
		Usage:   l10n.T("Run camera frames through a pipeline of image algorithms"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "log-level",
				Aliases:  []string{"l"},
				Value:    "info",
				Usage:    l10n.T("Log level (debug, info, warn, error)"),
				Category: l10n.T("Logging"),
			},
			&cli.BoolFlag{
				Name:     "quiet",
				Aliases:  []string{"Q"},
				Usage:    l10n.T("Suppress all log output"),
				Category: l10n.T("Logging"),
			},
		},
		Commands: []*cli.Command{
			listCommand(),
			generateCommand(),
			inspectCommand(),
			exportCommand(),
			runCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("framepipe version %s", version))
					return nil
				},
			},
		},
	}
}

// newLogger builds the logger selected by the global flags. level is used
// when --log-level was not given explicitly.
func newLogger(c *cli.Context, level string) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	if c.IsSet("log-level") || level == "" {
		level = c.String("log-level")
	}
	if c.App.Writer != os.Stdout {
		return logger.NewWriter(ports.ParseLogLevel(level), c.App.Writer, c.App.ErrWriter)
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}
