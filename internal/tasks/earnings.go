package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

// EarningsService is the remote earnings API. [services.EarningsGateway] implements it.
type EarningsService interface {
	ListEarnings(ctx context.Context, s *services.Session) ([]models.Earning, error)
	CreateEarning(ctx context.Context, s *services.Session, identifier string, microUSD int64) error
	DeleteEarnings(ctx context.Context, s *services.Session, ids []string) error
}

// SnapshotStore keeps the last fetched earnings list per environment.
// repositories.SnapshotRepository implements it.
type SnapshotStore interface {
	Replace(environment string, earnings []models.Earning, fetchedAt time.Time) error
}

// FormError is an add-earnings validation failure, worded for display next to the form.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return shared.ErrInvalidInput }

// EarningsSync wraps the remote calls the shell makes outside of imports.
//
// Every successful list replaces the local snapshot wholesale; mutations never touch it.
type EarningsSync struct {
	svc       EarningsService
	snapshots SnapshotStore
	logger    *log.Logger
}

// NewEarningsSync creates an EarningsSync. snapshots may be nil.
func NewEarningsSync(svc EarningsService, snapshots SnapshotStore, logger *log.Logger) *EarningsSync {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &EarningsSync{svc: svc, snapshots: snapshots, logger: logger}
}

// Refresh fetches the full list. A snapshot write failure is logged and otherwise ignored.
func (e *EarningsSync) Refresh(ctx context.Context, s *services.Session) ([]models.Earning, error) {
	if s == nil {
		return nil, shared.ErrNoSession
	}

	earnings, err := e.svc.ListEarnings(ctx, s)
	if err != nil {
		return nil, err
	}

	if e.snapshots != nil {
		if err := e.snapshots.Replace(s.Environment().Key(), earnings, time.Now()); err != nil {
			e.logger.Warn("failed to store earnings snapshot", "error", err)
		}
	}
	return earnings, nil
}

// ValidateAddForm checks the add-earnings inputs and converts the amount to micro-USD.
func ValidateAddForm(identifier, usd string) (string, int64, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", 0, &FormError{Message: "Please enter a Song ID or ISRC"}
	}
	if strings.TrimSpace(usd) == "" {
		return "", 0, &FormError{Message: "Please enter a USD amount"}
	}

	amount, err := shared.USDToMicro(usd)
	if err != nil {
		var amountErr *shared.AmountError
		if errors.As(err, &amountErr) {
			return "", 0, &FormError{Message: "Invalid amount: " + amountErr.Reason}
		}
		return "", 0, &FormError{Message: "Invalid amount: " + err.Error()}
	}
	return identifier, amount, nil
}

// Add validates the form input and creates one earning. The caller refreshes the list afterwards.
func (e *EarningsSync) Add(ctx context.Context, s *services.Session, identifier, usd string) error {
	id, amount, err := ValidateAddForm(identifier, usd)
	if err != nil {
		return err
	}
	if s == nil {
		return &FormError{Message: "No active session"}
	}
	return e.svc.CreateEarning(ctx, s, id, amount)
}

// Delete removes ids in one call. An empty selection is a no-op.
func (e *EarningsSync) Delete(ctx context.Context, s *services.Session, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if s == nil {
		return shared.ErrNoSession
	}
	if err := e.svc.DeleteEarnings(ctx, s, ids); err != nil {
		return fmt.Errorf("failed to delete earnings: %w", err)
	}
	return nil
}
