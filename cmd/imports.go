package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/repositories"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

type outcomeView struct {
	Identifier string `json:"songIdOrIsrc"`
	USDAmount  string `json:"amountUsd"`
	Result     string `json:"result"`
}

type importRunView struct {
	ID          string        `json:"id"`
	Sequence    int           `json:"sequence"`
	Environment string        `json:"environment"`
	Source      string        `json:"source"`
	Results     string        `json:"results,omitempty"`
	Status      string        `json:"status"`
	AbortReason string        `json:"abortReason,omitempty"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    string        `json:"duration"`
	Outcomes    []outcomeView `json:"outcomes,omitempty"`
}

func newImportRunView(rec *models.ImportRecord) importRunView {
	v := importRunView{
		ID:          rec.ID(),
		Sequence:    rec.Sequence,
		Environment: rec.Environment,
		Source:      rec.SourcePath,
		Results:     rec.Run.ResultsPath,
		Status:      string(rec.Status),
		AbortReason: rec.Run.AbortReason,
		Total:       rec.Run.Total,
		Succeeded:   rec.Run.Succeeded,
		Failed:      rec.Run.Failed,
		StartedAt:   rec.StartedAt,
		Duration:    rec.Duration().Round(time.Millisecond).String(),
	}
	for _, o := range rec.Run.Outcomes {
		v.Outcomes = append(v.Outcomes, outcomeView{Identifier: o.Row.Identifier, USDAmount: o.Row.USDAmount, Result: o.Result})
	}
	return v
}

func (r *Runner) importRuns() (*repositories.ImportRunRepository, func(), error) {
	db, err := r.openDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repositories.NewImportRunRepository(db), func() { db.Close() }, nil
}

// ImportsHistory lists recorded import runs, newest first.
func (r *Runner) ImportsHistory(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if name := cmd.String("env"); name != "" {
		env, err := services.ParseEnvironment(name)
		if err != nil {
			return err
		}
		criteria["environment"] = env.Key()
	}
	if status := cmd.String("status"); status != "" {
		switch models.ImportStatus(status) {
		case models.ImportCompleted, models.ImportAborted:
			criteria["status"] = status
		default:
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
	}

	repo, closeDB, err := r.importRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.List(criteria)
	if err != nil {
		return err
	}

	views := make([]importRunView, 0, len(records))
	for _, rec := range records {
		views = append(views, newImportRunView(rec))
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, true)
	}
	if len(views) == 0 {
		return r.writePlain("No imports recorded\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "Env", "Source", "Status", "OK", "Failed", "Started")
	for _, v := range views {
		t.Row(
			strconv.Itoa(v.Sequence), v.ID, v.Environment, v.Source, v.Status,
			strconv.Itoa(v.Succeeded), strconv.Itoa(v.Failed),
			v.StartedAt.Local().Format(time.DateTime),
		)
	}
	return r.writePlain("%s\n", t.Render())
}

// ImportsShow prints one recorded run with its row outcomes.
func (r *Runner) ImportsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: import id", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.importRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	rec, err := repo.Get(id)
	if err != nil {
		return err
	}
	v := newImportRunView(rec)

	if cmd.Bool("json") {
		return r.writeJSON(v, true)
	}

	r.writePlainHeader(fmt.Sprintf("Import #%d (%s)", v.Sequence, v.Status))
	r.writePlain("Environment: %s\n", v.Environment)
	r.writePlain("Source: %s\n", v.Source)
	if v.Results != "" {
		r.writePlain("Results: %s\n", v.Results)
	}
	if v.AbortReason != "" {
		r.writePlain("Aborted: %s\n", v.AbortReason)
	}
	r.writePlain("Rows: %d/%d succeeded, %d failed in %s\n\n", v.Succeeded, v.Total, v.Failed, v.Duration)

	for i, o := range v.Outcomes {
		r.writePlain("%3d  %-20s %12s  %s\n", i+1, o.Identifier, o.USDAmount, o.Result)
	}
	return nil
}
