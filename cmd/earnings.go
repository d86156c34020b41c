package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/formatter"
	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/repositories"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/tasks"
)

// snapshots opens the local snapshot store. A database that cannot be opened is logged and
// treated as absent so the remote commands keep working.
func (r *Runner) snapshots() (*repositories.SnapshotRepository, func()) {
	db, err := r.openDB()
	if err != nil {
		r.logger.Warn("local database unavailable", "error", err)
		return nil, func() {}
	}
	return repositories.NewSnapshotRepository(db), func() { db.Close() }
}

// EarningsList fetches earnings, applies the view flags and renders them.
//
// With --offline the last stored snapshot is shown instead and no login happens.
func (r *Runner) EarningsList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch {
	case cmd.Bool("json"):
		format = formatter.FormatJSON
	case cmd.Bool("csv"):
		format = formatter.FormatCSV
	}

	earnings, err := r.fetchEarnings(ctx, cmd)
	if err != nil {
		return err
	}

	view := tasks.NewEarningsView()
	view.Search = cmd.String("search")
	view.From = cmd.String("from")
	view.To = cmd.String("to")
	view.Sort = tasks.ParseSortColumn(cmd.String("sort"))
	view.Descending = cmd.Bool("desc")
	view.SetData(earnings)
	visible := view.Visible()

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(visible, format, path); err != nil {
			return err
		}
		r.logger.Info("earnings exported", "path", path, "count", len(visible))
		return r.writePlain("✓ Wrote %d earnings to %s\n", len(visible), path)
	}

	data, err := formatter.Export(visible, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) fetchEarnings(ctx context.Context, cmd *cli.Command) ([]models.Earning, error) {
	store, closeDB := r.snapshots()
	defer closeDB()

	if cmd.Bool("offline") {
		if store == nil {
			return nil, fmt.Errorf("%w: no local database for offline listing", shared.ErrServiceUnavailable)
		}
		env, err := r.environment(cmd)
		if err != nil {
			return nil, err
		}
		earnings, fetchedAt, err := store.List(env.Key())
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("no snapshot for %s yet, run without --offline first", env)
		}
		if err != nil {
			return nil, err
		}
		r.logger.Warn("showing stored snapshot", "environment", env, "fetched", fetchedAt.Local().Format(time.DateTime))
		return earnings, nil
	}

	s, err := r.login(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var snapshots tasks.SnapshotStore
	if store != nil {
		snapshots = store
	}
	earnings, err := tasks.NewEarningsSync(r.earnings, snapshots, r.logger).Refresh(ctx, s)
	if err != nil {
		r.notifier.Check(s, err)
		return nil, err
	}
	return earnings, nil
}

// EarningsAdd creates one earning.
func (r *Runner) EarningsAdd(ctx context.Context, cmd *cli.Command) error {
	identifier, usd := cmd.String("id"), cmd.String("usd")
	if _, _, err := tasks.ValidateAddForm(identifier, usd); err != nil {
		return err
	}

	s, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}

	sync := tasks.NewEarningsSync(r.earnings, nil, r.logger)
	if err := sync.Add(ctx, s, identifier, usd); err != nil {
		r.notifier.Check(s, err)
		return err
	}

	r.logger.Info("earning added", "identifier", identifier, "usd", usd)
	return r.writePlain("✓ Added $%s to %s\n", usd, identifier)
}

// EarningsDelete removes the earnings named on the command line after confirmation.
func (r *Runner) EarningsDelete(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one earning id", shared.ErrMissingArgument)
	}

	if !cmd.Bool("yes") {
		ok, err := r.confirm(fmt.Sprintf("Delete %d earnings?", len(ids)))
		if err != nil {
			return err
		}
		if !ok {
			return r.writePlain("Cancelled\n")
		}
	}

	s, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}

	sync := tasks.NewEarningsSync(r.earnings, nil, r.logger)
	if err := sync.Delete(ctx, s, ids); err != nil {
		r.notifier.Check(s, err)
		return err
	}

	r.logger.Info("earnings deleted", "count", len(ids))
	return r.writePlain("✓ Deleted %d earnings\n", len(ids))
}

// EarningsImport runs a bulk import and prints progress as rows complete.
func (r *Runner) EarningsImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: CSV path", shared.ErrMissingArgument)
	}

	perSecond := cmd.Float("rate")
	if perSecond <= 0 {
		perSecond = r.config.Import.RateLimit
	}

	s, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}

	opts := []tasks.ImportOption{
		tasks.WithNotifier(r.notifier),
		tasks.WithRateLimit(perSecond),
		tasks.WithImportLogger(r.logger),
	}
	if db, err := r.openDB(); err != nil {
		r.logger.Warn("import history disabled", "error", err)
	} else {
		defer db.Close()
		opts = append(opts,
			tasks.WithRecorder(repositories.NewImportRunRepository(db)),
			tasks.WithSnapshots(repositories.NewSnapshotRepository(db)),
		)
	}
	coordinator := tasks.NewImportCoordinator(r.earnings, opts...)

	progress := make(chan tasks.ProgressUpdate)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("[%s] %s\n", update.Phase, update.Message)
		}
	}()

	result, err := coordinator.ImportFile(ctx, s, path, progress)
	close(progress)
	<-done

	if err != nil {
		if result != nil && services.IsSessionExpired(err) {
			r.writePlainln("Import aborted after %d of %d rows", result.Run.Processed(), result.Run.Total)
		}
		return err
	}

	summary, warn := result.Summary()
	if warn {
		r.logger.Warn(summary)
	}
	r.writePlainln("%s", summary)
	if result.RefreshErr != nil {
		r.writePlain("Could not refresh earnings: %s\n", services.UserMessage(result.RefreshErr))
	}
	return nil
}
