package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/repositories"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/ui"
)

// TUI launches the interactive console.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	deps := ui.Deps{
		Config:   r.config,
		Logger:   fileLogger,
		Notifier: services.NewNotifier(fileLogger),
		Earnings: r.earnings,
		Connect: func(ctx context.Context, env services.Environment, creds services.Credentials) (*services.Session, error) {
			return r.connect(ctx, env, creds)
		},
	}

	if db, err := r.openDB(); err != nil {
		fileLogger.Warn("running without local database", "error", err)
	} else {
		defer db.Close()
		deps.Snapshots = repositories.NewSnapshotRepository(db)
		deps.Recorder = repositories.NewImportRunRepository(db)
	}

	return ui.Run(ctx, deps)
}
