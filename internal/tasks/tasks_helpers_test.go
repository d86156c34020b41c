package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
)

type createCall struct {
	Identifier string
	Amount     int64
}

// fakeEarnings is an in-memory [EarningsService]. createErr decides the result per identifier.
type fakeEarnings struct {
	mu        sync.Mutex
	earnings  []models.Earning
	listErr   error
	deleteErr error
	createErr func(identifier string) error
	creates   []createCall
	deletes   [][]string
	lists     int
}

func (f *fakeEarnings) ListEarnings(ctx context.Context, s *services.Session) ([]models.Earning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Earning(nil), f.earnings...), nil
}

func (f *fakeEarnings) CreateEarning(ctx context.Context, s *services.Session, identifier string, microUSD int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{Identifier: identifier, Amount: microUSD})
	if f.createErr != nil {
		if err := f.createErr(identifier); err != nil {
			return err
		}
	}
	id := identifier
	f.earnings = append(f.earnings, models.Earning{ID: &id, SongID: &id, Amount: microUSD})
	return nil
}

func (f *fakeEarnings) DeleteEarnings(ctx context.Context, s *services.Session, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ids)
	return f.deleteErr
}

func (f *fakeEarnings) createdIdentifiers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.creates))
	for _, c := range f.creates {
		out = append(out, c.Identifier)
	}
	return out
}

type snapshotCall struct {
	Environment string
	Earnings    []models.Earning
	FetchedAt   time.Time
}

type fakeSnapshots struct {
	calls []snapshotCall
	err   error
}

func (f *fakeSnapshots) Replace(environment string, earnings []models.Earning, fetchedAt time.Time) error {
	f.calls = append(f.calls, snapshotCall{environment, earnings, fetchedAt})
	return f.err
}

type fakeRecorder struct {
	records []*models.ImportRecord
	err     error
}

func (f *fakeRecorder) Create(r *models.ImportRecord) error {
	if f.err != nil {
		return f.err
	}
	r.SetID("run-1")
	f.records = append(f.records, r)
	return nil
}

func testSession() *services.Session {
	return services.NewSession(services.TokenPair{AccessToken: "a.b.c", RefreshToken: "r.s.t"}, services.Studio, nil)
}

func strPtr(s string) *string { return &s }
