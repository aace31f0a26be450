package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/saaga0h/lumen-platform/pkg/config"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:        "lumen-settings",
		Usage:       "Edit the lumen bridge settings and render the calibration preview",
		Description: "Create, inspect and change the settings record read by lumen-bridge, and check on a running bridge.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Usage:   "Path to the settings file",
				Value:   config.DefaultSettingsPath(),
				Sources: cli.EnvVars("LUMEN_SETTINGS_PATH"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			showCommand(),
			setCommand(),
			fieldsCommand(),
			previewCommand(),
			statusCommand(),
			historyCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
	}
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
