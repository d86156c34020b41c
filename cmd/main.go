package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadDotEnv(".env"); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("using default config", "error", err)
		}
	}
	config.ApplyEnv(nil)
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	if err := config.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "earnx",
		Usage:    "Manage song earnings on the Garage and Studio backends",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case services.IsSessionExpired(err):
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
			os.Exit(2)
		case errors.Is(err, shared.ErrNotAdmin):
			fmt.Fprintln(os.Stderr, services.UserMessage(err))
			os.Exit(3)
		default:
			logger.Fatalf("application error: %s", services.UserMessage(err))
		}
	}
}
