package tasks

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	tu "github.com/desertthunder/earnx/internal/testing"
)

func rows(pairs ...string) []models.ImportRow {
	out := make([]models.ImportRow, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.ImportRow{Identifier: pairs[i], USDAmount: pairs[i+1]})
	}
	return out
}

func collect(ch chan ProgressUpdate) []ProgressUpdate {
	close(ch)
	var out []ProgressUpdate
	for u := range ch {
		out = append(out, u)
	}
	return out
}

func expiredErr() error {
	return &services.SessionExpiredError{Reason: "Unauthorized - please login again"}
}

func TestImportCoordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("All Rows Succeed", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "earnings.csv")
		svc := &fakeEarnings{}
		recorder := &fakeRecorder{}
		snaps := &fakeSnapshots{}
		c := NewImportCoordinator(svc, WithRecorder(recorder), WithSnapshots(snaps))

		progress := make(chan ProgressUpdate, 16)
		result, err := c.Import(ctx, testSession(), input, rows("A", "1", "B", "2.5", "C", "0.000001"), progress)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Run.Total)
		assert.Equal(t, 3, result.Run.Succeeded)
		assert.Equal(t, 0, result.Run.Failed)
		assert.False(t, result.Run.Aborted)
		assert.Equal(t, []createCall{{"A", 1_000_000}, {"B", 2_500_000}, {"C", 1}}, svc.creates)

		assert.Equal(t, filepath.Join(dir, "earnings_results.csv"), result.Run.ResultsPath)
		content, err := os.ReadFile(result.Run.ResultsPath)
		require.NoError(t, err)
		assert.Equal(t, "songId_or_isrc,amount_usd,result\nA,1,Success\nB,2.5,Success\nC,0.000001,Success\n", string(content))

		assert.Len(t, result.Earnings, 3)
		assert.NoError(t, result.RefreshErr)
		assert.Len(t, snaps.calls, 1)

		require.NotNil(t, result.Record)
		assert.Equal(t, models.ImportCompleted, result.Record.Status)
		assert.Equal(t, "studio", result.Record.Environment)
		assert.Equal(t, input, result.Record.SourcePath)

		msg, warn := result.Summary()
		assert.Equal(t, "Successfully imported 3 earnings. Results saved to earnings_results.csv", msg)
		assert.False(t, warn)

		updates := collect(progress)
		require.Len(t, updates, 6)
		assert.Equal(t, ImportRows, updates[0].Phase)
		assert.Equal(t, 0, updates[0].Step)
		for i := 1; i <= 3; i++ {
			assert.Equal(t, ImportRows, updates[i].Phase)
			assert.Equal(t, i, updates[i].Step)
			assert.Equal(t, 3, updates[i].Total)
		}
		assert.Equal(t, WriteResults, updates[4].Phase)
		assert.Equal(t, RefreshEarnings, updates[5].Phase)
	})

	t.Run("Invalid Amount Is Recorded Without Request", func(t *testing.T) {
		input := filepath.Join(t.TempDir(), "batch.csv")
		svc := &fakeEarnings{}
		c := NewImportCoordinator(svc)

		result, err := c.Import(ctx, testSession(), input, rows("A", "1", "B", "1.1234567", "C", "3"), nil)
		require.NoError(t, err)

		require.Len(t, result.Run.Outcomes, 3)
		assert.Equal(t, 2, result.Run.Succeeded)
		assert.Equal(t, 1, result.Run.Failed)
		assert.Equal(t, "Error: Invalid amount - Maximum 6 decimal places allowed (got 7)", result.Run.Outcomes[1].Result)
		assert.Equal(t, []string{"A", "C"}, svc.createdIdentifiers())

		msg, warn := result.Summary()
		assert.Equal(t, "Imported 2/3 earnings (1 failed). Results saved to batch_results.csv", msg)
		assert.True(t, warn)
	})

	t.Run("Backend Error Continues", func(t *testing.T) {
		svc := &fakeEarnings{createErr: func(id string) error {
			if id == "B" {
				return &services.HTTPError{Status: http.StatusNotFound, Message: "Song B not found"}
			}
			return nil
		}}
		c := NewImportCoordinator(svc)

		result, err := c.Import(ctx, testSession(), filepath.Join(t.TempDir(), "in.csv"), rows("A", "1", "B", "1", "C", "1"), nil)
		require.NoError(t, err)
		assert.Equal(t, "Error: HTTP 404: Song B not found", result.Run.Outcomes[1].Result)
		assert.Equal(t, []string{"A", "B", "C"}, svc.createdIdentifiers())
	})

	t.Run("Session Expiry Aborts", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "in.csv")
		svc := &fakeEarnings{createErr: func(id string) error {
			if id == "B" {
				return expiredErr()
			}
			return nil
		}}

		s := testSession()
		notifier := services.NewNotifier(nil)
		notifier.LoginSucceeded(s)
		var events []services.Event
		notifier.Subscribe(services.ObserverFunc(func(e services.Event) { events = append(events, e) }))

		recorder := &fakeRecorder{}
		c := NewImportCoordinator(svc, WithNotifier(notifier), WithRecorder(recorder))

		result, err := c.Import(ctx, s, input, rows("A", "1", "B", "1", "C", "1"), nil)
		require.Error(t, err)
		assert.True(t, services.IsSessionExpired(err))

		require.NotNil(t, result)
		require.Len(t, result.Run.Outcomes, 1)
		assert.Equal(t, "A", result.Run.Outcomes[0].Row.Identifier)
		assert.True(t, result.Run.Aborted)
		assert.Equal(t, "Unauthorized - please login again", result.Run.AbortReason)
		assert.Equal(t, []string{"A", "B"}, svc.createdIdentifiers())
		assert.Zero(t, svc.lists)

		require.Len(t, events, 1)
		assert.Equal(t, services.SessionExpired, events[0].Kind)
		assert.Nil(t, notifier.Current())

		require.Len(t, recorder.records, 1)
		assert.Equal(t, models.ImportAborted, recorder.records[0].Status)

		_, statErr := os.Stat(filepath.Join(dir, "in_results.csv"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Cancellation Stops Before Next Row", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		svc := &fakeEarnings{createErr: func(string) error {
			cancel()
			return nil
		}}
		c := NewImportCoordinator(svc)

		result, err := c.Import(cctx, testSession(), filepath.Join(t.TempDir(), "in.csv"), rows("A", "1", "B", "1"), nil)
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, result.Run.Outcomes, 1)
		assert.True(t, result.Run.Outcomes[0].Succeeded())
		assert.True(t, result.Run.Aborted)
		assert.Equal(t, "cancelled", result.Run.AbortReason)
	})

	t.Run("Consumer Leaving After Rows Keeps Run", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		svc := &fakeEarnings{}
		recorder := &fakeRecorder{}
		c := NewImportCoordinator(svc, WithRecorder(recorder))

		progress := make(chan ProgressUpdate)
		go func() {
			for u := range progress {
				if u.Phase == ImportRows && u.Step == u.Total {
					cancel()
					return
				}
			}
		}()

		result, err := c.Import(cctx, testSession(), filepath.Join(t.TempDir(), "in.csv"), rows("A", "1", "B", "2"), progress)
		require.NoError(t, err)
		assert.False(t, result.Run.Aborted)
		assert.Equal(t, 2, result.Run.Succeeded)
		require.Len(t, recorder.records, 1)
		assert.Equal(t, result.Record, recorder.records[0])
	})

	t.Run("Results Write Failure Skips Refresh", func(t *testing.T) {
		svc := &fakeEarnings{}
		c := NewImportCoordinator(svc, WithResultsWriter(func(string, []models.ImportOutcome) (string, error) {
			return "", errors.New("read-only file system")
		}))

		result, err := c.Import(ctx, testSession(), "in.csv", rows("A", "1"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write results")
		assert.Equal(t, 1, result.Run.Succeeded)
		assert.Zero(t, svc.lists)
	})

	t.Run("Refresh Failure Is Reported Separately", func(t *testing.T) {
		s := testSession()
		notifier := services.NewNotifier(nil)
		notifier.LoginSucceeded(s)

		svc := &fakeEarnings{listErr: expiredErr()}
		c := NewImportCoordinator(svc, WithNotifier(notifier))

		result, err := c.Import(ctx, s, filepath.Join(t.TempDir(), "in.csv"), rows("A", "1"), nil)
		require.NoError(t, err)
		assert.True(t, services.IsSessionExpired(result.RefreshErr))
		assert.Nil(t, notifier.Current())
		assert.Equal(t, 1, result.Run.Succeeded)
	})

	t.Run("No Session", func(t *testing.T) {
		_, err := NewImportCoordinator(&fakeEarnings{}).Import(ctx, nil, "in.csv", rows("A", "1"), nil)
		assert.Error(t, err)
	})

	t.Run("Rate Limit", func(t *testing.T) {
		svc := &fakeEarnings{}
		c := NewImportCoordinator(svc, WithRateLimit(1000))

		result, err := c.Import(ctx, testSession(), filepath.Join(t.TempDir(), "in.csv"), rows("A", "1", "B", "2"), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Run.Succeeded)
	})
}

func TestImportFileAgainstBackend(t *testing.T) {
	ctx := context.Background()

	newSession := func(t *testing.T, fb *tu.FakeBackend) *services.Session {
		access, refresh, err := fb.IssuePair(time.Hour)
		require.NoError(t, err)
		client := services.NewAPIClient(fb.URL, "earnx-test/1.0", nil, nil)
		return services.NewSession(services.TokenPair{AccessToken: access, RefreshToken: refresh}, services.Garage, client)
	}

	writeInput := func(t *testing.T, content string) string {
		path := filepath.Join(t.TempDir(), "royalties.csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("Mixed Outcomes", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		fb.Configure(func(st *tu.BackendState) {
			st.CreateStatus = func(id string) int {
				if id == "missing" {
					return http.StatusNotFound
				}
				return http.StatusOK
			}
		})

		path := writeInput(t, "Song ID/ISRC,USD Amount\nsong-1,10.50\nmissing,1\nsong-2,abc\n")
		c := NewImportCoordinator(services.NewEarningsGateway(nil))

		progress := make(chan ProgressUpdate, 16)
		result, err := c.ImportFile(ctx, newSession(t, fb), path, progress)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Run.Succeeded)
		assert.Equal(t, 2, result.Run.Failed)
		assert.Equal(t, "Error: HTTP 404: Song missing not found", result.Run.Outcomes[1].Result)
		assert.Equal(t, "Error: Invalid amount - Invalid number format", result.Run.Outcomes[2].Result)
		assert.Len(t, result.Earnings, 1)

		st := fb.State()
		assert.Equal(t, []tu.CreatedEarning{{Identifier: "song-1", USDAmount: 10_500_000}}, st.Created)
		assert.Equal(t, 2, st.CreateCalls)

		updates := collect(progress)
		require.NotEmpty(t, updates)
		assert.Equal(t, ParseFile, updates[0].Phase)
	})

	t.Run("Unauthorized Mid Import", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		fb.Configure(func(st *tu.BackendState) {
			st.CreateStatus = func(id string) int {
				if id == "B" {
					return http.StatusUnauthorized
				}
				return http.StatusOK
			}
		})

		path := writeInput(t, "A,1\nB,1\nC,1\n")
		c := NewImportCoordinator(services.NewEarningsGateway(nil))

		result, err := c.ImportFile(ctx, newSession(t, fb), path, nil)
		require.Error(t, err)
		assert.True(t, services.IsSessionExpired(err))
		assert.Len(t, result.Run.Outcomes, 1)
		assert.Equal(t, 2, fb.State().CreateCalls)
	})

	t.Run("Parse Failure", func(t *testing.T) {
		path := writeInput(t, "Song ID/ISRC,USD Amount\n")
		c := NewImportCoordinator(&fakeEarnings{})

		_, err := c.ImportFile(ctx, testSession(), path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse CSV")
	})
}
