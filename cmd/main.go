package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("ENCORE_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrUploadFailed):
			logger.Error(shared.GenericErrorMessage)
			logger.Debug("upload error", "error", err)
			runner.Close()
			os.Exit(1)
		default:
			runner.Close()
			logger.Fatalf("application error: %v", err)
		}
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "encore",
		Usage:   "Prepare albums, configure stream payouts and publish them",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: r.register(),
	}
}
