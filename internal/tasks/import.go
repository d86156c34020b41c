package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/earnx/internal/formatter"
	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

// ImportRecorder stores finished import runs. repositories.ImportRunRepository implements it.
type ImportRecorder interface {
	Create(record *models.ImportRecord) error
}

// ImportResult is what an import produced, including partial results of an aborted run.
type ImportResult struct {
	Run        models.ImportRun
	Record     *models.ImportRecord // nil when no recorder is configured or storing failed
	Earnings   []models.Earning     // refreshed list after a completed run
	RefreshErr error                // set when the post-import refresh failed
}

// Summary renders the message shown when a run completes. The boolean is true when any row failed.
func (r *ImportResult) Summary() (string, bool) {
	run := r.Run
	file := filepath.Base(run.ResultsPath)
	if run.Failed > 0 {
		return fmt.Sprintf("Imported %d/%d earnings (%d failed). Results saved to %s", run.Succeeded, run.Total, run.Failed, file), true
	}
	return fmt.Sprintf("Successfully imported %d earnings. Results saved to %s", run.Succeeded, file), false
}

// ImportOption configures an [ImportCoordinator].
type ImportOption func(*ImportCoordinator)

// WithRateLimit paces row requests to at most perSecond. Zero or less disables pacing.
func WithRateLimit(perSecond float64) ImportOption {
	return func(c *ImportCoordinator) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithNotifier reports session expiry to the shell.
func WithNotifier(n *services.Notifier) ImportOption {
	return func(c *ImportCoordinator) { c.notifier = n }
}

// WithRecorder stores every completed or aborted run.
func WithRecorder(r ImportRecorder) ImportOption {
	return func(c *ImportCoordinator) { c.recorder = r }
}

// WithSnapshots stores the list fetched after a completed run.
func WithSnapshots(s SnapshotStore) ImportOption {
	return func(c *ImportCoordinator) { c.snapshots = s }
}

// WithResultsWriter replaces [formatter.WriteImportResults].
func WithResultsWriter(fn func(input string, outcomes []models.ImportOutcome) (string, error)) ImportOption {
	return func(c *ImportCoordinator) { c.writeResults = fn }
}

// WithImportLogger sets the coordinator logger.
func WithImportLogger(l *log.Logger) ImportOption {
	return func(c *ImportCoordinator) { c.logger = l }
}

// ImportCoordinator runs bulk imports against a single [services.Session].
//
// Rows are sent strictly one at a time, in file order. A row with an unreadable amount is
// recorded as failed without a request. Session expiry aborts the run at once: the rows
// after it are not attempted and only the outcomes recorded so far are returned.
type ImportCoordinator struct {
	svc          EarningsService
	notifier     *services.Notifier
	recorder     ImportRecorder
	snapshots    SnapshotStore
	limiter      *rate.Limiter
	writeResults func(string, []models.ImportOutcome) (string, error)
	logger       *log.Logger
	now          func() time.Time
}

// NewImportCoordinator creates a coordinator creating earnings through svc.
func NewImportCoordinator(svc EarningsService, opts ...ImportOption) *ImportCoordinator {
	c := &ImportCoordinator{
		svc:          svc,
		writeResults: formatter.WriteImportResults,
		logger:       shared.NewLogger(io.Discard),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ImportFile parses the CSV at path and imports its rows.
func (c *ImportCoordinator) ImportFile(ctx context.Context, s *services.Session, path string, progress chan<- ProgressUpdate) (*ImportResult, error) {
	rows, err := formatter.ParseImportFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	c.logger.Info("parsed import file", "path", path, "rows", len(rows))
	if err := c.send(ctx, progress, parsedFileUpdate(filepath.Base(path), len(rows))); err != nil {
		return nil, err
	}
	return c.Import(ctx, s, path, rows, progress)
}

// Import creates one earning per row and then writes the results file beside path and
// refreshes the earnings list.
//
// Progress is published after every processed row with a blocking send, so updates arrive in
// row order; a nil channel disables progress. When the session expires the partial result is
// returned together with the [*services.SessionExpiredError]. Cancelling ctx stops the run
// before the next row; the request already in flight completes first.
func (c *ImportCoordinator) Import(ctx context.Context, s *services.Session, path string, rows []models.ImportRow, progress chan<- ProgressUpdate) (*ImportResult, error) {
	if s == nil {
		return nil, shared.ErrNoSession
	}

	started := c.now()
	total := len(rows)
	result := &ImportResult{Run: models.ImportRun{Total: total, Outcomes: make([]models.ImportOutcome, 0, total)}}
	logger := shared.WithLogger(c.logger, "environment", s.Environment(), "path", path)

	if err := c.send(ctx, progress, importStartUpdate(total)); err != nil {
		return c.abort(result, s, path, started, "cancelled", err)
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return c.abort(result, s, path, started, "cancelled", err)
		}

		outcome, err := c.importRow(ctx, s, row)
		if services.IsSessionExpired(err) {
			logger.Warn("session expired during import", "row", i+1, "processed", result.Run.Processed())
			if c.notifier != nil {
				c.notifier.Check(s, err)
			}
			return c.abort(result, s, path, started, services.UserMessage(err), err)
		}
		if err != nil {
			return c.abort(result, s, path, started, "cancelled", err)
		}

		result.Run.Record(outcome)
		if err := c.send(ctx, progress, rowUpdate(i+1, total, outcome)); err != nil {
			return c.abort(result, s, path, started, "cancelled", err)
		}
	}

	resultsPath, err := c.writeResults(path, result.Run.Outcomes)
	if err != nil {
		logger.Error("failed to write import results", "error", err)
		return result, fmt.Errorf("failed to write results: %w", err)
	}
	result.Run.ResultsPath = resultsPath
	// Rows are already applied, so a departed consumer does not undo the run.
	if err := c.send(ctx, progress, writeResultsUpdate(resultsPath)); err != nil {
		logger.Debug("progress consumer gone after rows completed", "error", err)
	}

	logger.Info("import complete", "total", total, "succeeded", result.Run.Succeeded, "failed", result.Run.Failed)
	result.Record = c.record(s, path, result.Run, started)

	sync := NewEarningsSync(c.svc, c.snapshots, c.logger)
	earnings, err := sync.Refresh(ctx, s)
	if err != nil {
		logger.Warn("failed to refresh earnings after import", "error", err)
		result.RefreshErr = err
		if c.notifier != nil {
			c.notifier.Check(s, err)
		}
		return result, nil
	}
	result.Earnings = earnings
	if err := c.send(ctx, progress, refreshUpdate(len(earnings))); err != nil {
		logger.Debug("progress consumer gone before refresh update", "error", err)
	}
	return result, nil
}

// importRow converts the amount and creates the earning. The returned error is only set for
// failures that end the run.
func (c *ImportCoordinator) importRow(ctx context.Context, s *services.Session, row models.ImportRow) (models.ImportOutcome, error) {
	outcome := models.ImportOutcome{Row: row}

	amount, err := shared.USDToMicro(row.USDAmount)
	if err != nil {
		reason := err.Error()
		var amountErr *shared.AmountError
		if errors.As(err, &amountErr) {
			reason = amountErr.Reason
		}
		outcome.Result = "Error: Invalid amount - " + reason
		return outcome, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return outcome, err
		}
	}

	err = c.svc.CreateEarning(ctx, s, row.Identifier, amount)
	switch {
	case err == nil:
		outcome.Result = models.OutcomeSuccess
	case services.IsSessionExpired(err):
		return outcome, err
	case ctx.Err() != nil:
		return outcome, ctx.Err()
	default:
		outcome.Result = "Error: " + err.Error()
	}
	return outcome, nil
}

func (c *ImportCoordinator) abort(result *ImportResult, s *services.Session, path string, started time.Time, reason string, err error) (*ImportResult, error) {
	result.Run.Aborted = true
	result.Run.AbortReason = reason
	result.Record = c.record(s, path, result.Run, started)
	return result, err
}

// record stores run when a recorder is configured. Failures are logged.
func (c *ImportCoordinator) record(s *services.Session, path string, run models.ImportRun, started time.Time) *models.ImportRecord {
	if c.recorder == nil {
		return nil
	}

	rec := models.NewImportRecord(s.Environment().Key(), path, run, started, c.now())
	if err := c.recorder.Create(rec); err != nil {
		c.logger.Warn("failed to record import run", "error", err)
		return nil
	}
	return rec
}

// send publishes update, giving up when ctx is done.
func (c *ImportCoordinator) send(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) error {
	if progress == nil {
		return nil
	}
	select {
	case progress <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
