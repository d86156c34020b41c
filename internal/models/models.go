package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for locally persisted records.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the data access operations for a persisted model type.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Earning is a royalty earning owned by the backend. Amount is in micro-USD.
type Earning struct {
	ID           *string `json:"id,omitempty"`
	SongID       *string `json:"songId,omitempty"`
	StakeAddress string  `json:"stakeAddress"`
	Amount       int64   `json:"amount"`
	Memo         *string `json:"memo,omitempty"`
	Claimed      bool    `json:"claimed"`
	ClaimedAt    *string `json:"claimedAt,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// Key returns the earning id, or an empty string when the backend did not send one.
func (e Earning) Key() string { return deref(e.ID) }

// Song returns the song id or an empty string.
func (e Earning) Song() string { return deref(e.SongID) }

// Note returns the memo or an empty string.
func (e Earning) Note() string { return deref(e.Memo) }

// ClaimedOn returns the claim timestamp or an empty string.
func (e Earning) ClaimedOn() string { return deref(e.ClaimedAt) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ImportRow is one data row of an import file.
type ImportRow struct {
	Identifier string // song id or ISRC
	USDAmount  string // decimal text, converted to micro-USD before sending
}

// OutcomeSuccess is the result text recorded for a row the backend accepted.
const OutcomeSuccess = "Success"

// ImportOutcome pairs a row with the result of processing it.
type ImportOutcome struct {
	Row    ImportRow
	Result string
}

// Succeeded reports whether the row was accepted.
func (o ImportOutcome) Succeeded() bool { return o.Result == OutcomeSuccess }

// ImportRun aggregates the outcomes of one import invocation in input order.
type ImportRun struct {
	Total       int
	Succeeded   int
	Failed      int
	Outcomes    []ImportOutcome
	Aborted     bool
	AbortReason string
	ResultsPath string
}

// Processed returns how many rows produced an outcome.
func (r ImportRun) Processed() int { return len(r.Outcomes) }

// Record outcome o and update the counters.
func (r *ImportRun) Record(o ImportOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Succeeded() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// ImportStatus is the terminal state of a persisted import run.
type ImportStatus string

const (
	ImportCompleted ImportStatus = "completed"
	ImportAborted   ImportStatus = "aborted"
)

// ImportRecord is an [ImportRun] stored in the local history.
type ImportRecord struct {
	id          string
	Sequence    int
	Environment string
	SourcePath  string
	Status      ImportStatus
	StartedAt   time.Time
	FinishedAt  time.Time
	createdAt   time.Time
	Run         ImportRun
}

// NewImportRecord creates a record for run, taking its status from run.Aborted.
func NewImportRecord(environment, sourcePath string, run ImportRun, startedAt, finishedAt time.Time) *ImportRecord {
	status := ImportCompleted
	if run.Aborted {
		status = ImportAborted
	}
	return &ImportRecord{
		Environment: environment,
		SourcePath:  sourcePath,
		Status:      status,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		createdAt:   time.Now(),
		Run:         run,
	}
}

func (r *ImportRecord) ID() string               { return r.id }
func (r *ImportRecord) SetID(id string)          { r.id = id }
func (r *ImportRecord) CreatedAt() time.Time     { return r.createdAt }
func (r *ImportRecord) SetCreatedAt(t time.Time) { r.createdAt = t }

// Duration returns how long the run took.
func (r *ImportRecord) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

func (r *ImportRecord) Validate() error {
	if r.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if r.SourcePath == "" {
		return fmt.Errorf("source path is required")
	}
	if r.Status != ImportCompleted && r.Status != ImportAborted {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	if r.Run.Succeeded+r.Run.Failed != len(r.Run.Outcomes) {
		return fmt.Errorf("counters do not match %d outcomes", len(r.Run.Outcomes))
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("finished before it started")
	}
	return nil
}
