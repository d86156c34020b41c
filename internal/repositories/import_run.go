package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
)

// ImportRunRepository implements models.Repository[*models.ImportRecord] for the local import history.
//
// Outcomes are stored alongside each run in input order and removed with it.
type ImportRunRepository struct {
	db *sql.DB
}

// NewImportRunRepository creates a new ImportRunRepository with the given database connection
func NewImportRunRepository(db *sql.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// Create inserts the run and its outcomes with a generated ID and sequence
func (r *ImportRunRepository) Create(record *models.ImportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(tx, "import_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run := record.Run

	_, err = tx.Exec(`
		INSERT INTO import_runs (
			id, sequence, environment, source_path, results_path, status,
			total, succeeded, failed, abort_reason, started_at, finished_at, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		sequence,
		record.Environment,
		record.SourcePath,
		emptyToNull(run.ResultsPath),
		string(record.Status),
		run.Total,
		run.Succeeded,
		run.Failed,
		emptyToNull(run.AbortReason),
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
		record.CreatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}

	for i, o := range run.Outcomes {
		_, err := tx.Exec(
			"INSERT INTO import_outcomes (run_id, position, identifier, usd_amount, result) VALUES (?, ?, ?, ?, ?)",
			id, i, o.Row.Identifier, o.Row.USDAmount, o.Result,
		)
		if err != nil {
			return fmt.Errorf("failed to insert import outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import run: %w", err)
	}

	record.SetID(id)
	record.Sequence = sequence
	return nil
}

// Get retrieves a run and its outcomes by ID
func (r *ImportRunRepository) Get(id string) (*models.ImportRecord, error) {
	query := selectImportRuns + " WHERE id = ?"

	record, err := scanImportRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadOutcomes(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a run by ID. Its outcomes go with it.
func (r *ImportRunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM import_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete import run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: import run %s", shared.ErrNotFound, id)
	}
	return nil
}

// List retrieves runs newest first. Supported criteria are "environment", "status" and "limit".
// Outcomes are not loaded; use [ImportRunRepository.Get] for a single run's rows.
func (r *ImportRunRepository) List(criteria map[string]any) ([]*models.ImportRecord, error) {
	query := selectImportRuns + " WHERE 1 = 1"
	args := []any{}

	if env, ok := criteria["environment"].(string); ok && env != "" {
		query += " AND environment = ?"
		args = append(args, env)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var records []*models.ImportRecord
	for rows.Next() {
		record, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

func (r *ImportRunRepository) loadOutcomes(record *models.ImportRecord) error {
	rows, err := r.db.Query(
		"SELECT identifier, usd_amount, result FROM import_outcomes WHERE run_id = ? ORDER BY position",
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to query import outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []models.ImportOutcome{}
	for rows.Next() {
		var o models.ImportOutcome
		if err := rows.Scan(&o.Row.Identifier, &o.Row.USDAmount, &o.Result); err != nil {
			return fmt.Errorf("failed to scan import outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	record.Run.Outcomes = outcomes
	return nil
}

const selectImportRuns = `
	SELECT
		id, sequence, environment, source_path, results_path, status,
		total, succeeded, failed, abort_reason, started_at, finished_at, created_at
	FROM import_runs`

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanImportRun(s scanner) (*models.ImportRecord, error) {
	var (
		record      models.ImportRecord
		id          string
		status      string
		resultsPath sql.NullString
		abortReason sql.NullString
		createdAt   time.Time
	)

	err := s.Scan(
		&id, &record.Sequence, &record.Environment, &record.SourcePath, &resultsPath, &status,
		&record.Run.Total, &record.Run.Succeeded, &record.Run.Failed, &abortReason,
		&record.StartedAt, &record.FinishedAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import run: %w", err)
	}

	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.Status = models.ImportStatus(status)
	record.Run.ResultsPath = resultsPath.String
	record.Run.AbortReason = abortReason.String
	record.Run.Aborted = record.Status == models.ImportAborted
	return &record, nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
