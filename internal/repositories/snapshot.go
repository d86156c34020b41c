package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
)

// SnapshotRepository stores the last fetched earnings list per environment.
//
// A snapshot is only ever replaced as a whole; it is never patched after adds or deletes.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Replace swaps the stored snapshot of environment for earnings in one transaction.
func (r *SnapshotRepository) Replace(environment string, earnings []models.Earning, fetchedAt time.Time) error {
	if environment == "" {
		return fmt.Errorf("%w: environment is required", shared.ErrInvalidArgument)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM earnings_snapshot WHERE environment = ?", environment); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO earnings_snapshot (
			row_id, environment, earning_id, song_id, stake_address,
			amount, memo, claimed, claimed_at, created_at, fetched_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range earnings {
		_, err := stmt.Exec(
			shared.GenerateID(),
			environment,
			nullable(e.ID),
			nullable(e.SongID),
			e.StakeAddress,
			e.Amount,
			nullable(e.Memo),
			e.Claimed,
			nullable(e.ClaimedAt),
			e.CreatedAt,
			fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// List returns the stored snapshot of environment and when it was fetched.
// It returns [shared.ErrNotFound] when the environment was never fetched.
//
// An empty list that was fetched is indistinguishable from one never fetched.
func (r *SnapshotRepository) List(environment string) ([]models.Earning, time.Time, error) {
	query := `
		SELECT earning_id, song_id, stake_address, amount, memo, claimed, claimed_at, created_at, fetched_at
		FROM earnings_snapshot
		WHERE environment = ?
		ORDER BY created_at DESC, rowid ASC
	`

	rows, err := r.db.Query(query, environment)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var (
		earnings  []models.Earning
		fetchedAt time.Time
	)
	for rows.Next() {
		var (
			e                                  models.Earning
			earningID, songID, memo, claimedAt sql.NullString
		)
		err := rows.Scan(&earningID, &songID, &e.StakeAddress, &e.Amount, &memo, &e.Claimed, &claimedAt, &e.CreatedAt, &fetchedAt)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		e.ID = fromNull(earningID)
		e.SongID = fromNull(songID)
		e.Memo = fromNull(memo)
		e.ClaimedAt = fromNull(claimedAt)
		earnings = append(earnings, e)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("row iteration error: %w", err)
	}

	if len(earnings) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: no snapshot for %s", shared.ErrNotFound, environment)
	}
	return earnings, fetchedAt, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
