package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

func TestEarningsSync(t *testing.T) {
	ctx := context.Background()

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Stores Snapshot", func(t *testing.T) {
			svc := &fakeEarnings{earnings: []models.Earning{{ID: strPtr("e1"), Amount: 5}}}
			snaps := &fakeSnapshots{}
			sync := NewEarningsSync(svc, snaps, nil)

			earnings, err := sync.Refresh(ctx, testSession())
			require.NoError(t, err)
			assert.Len(t, earnings, 1)
			require.Len(t, snaps.calls, 1)
			assert.Equal(t, "studio", snaps.calls[0].Environment)
			assert.Len(t, snaps.calls[0].Earnings, 1)
		})

		t.Run("Snapshot Failure Is Ignored", func(t *testing.T) {
			svc := &fakeEarnings{}
			sync := NewEarningsSync(svc, &fakeSnapshots{err: errors.New("disk full")}, nil)

			_, err := sync.Refresh(ctx, testSession())
			assert.NoError(t, err)
		})

		t.Run("List Failure Skips Snapshot", func(t *testing.T) {
			svc := &fakeEarnings{listErr: &services.HTTPError{Status: 500, Message: "boom"}}
			snaps := &fakeSnapshots{}
			sync := NewEarningsSync(svc, snaps, nil)

			_, err := sync.Refresh(ctx, testSession())
			assert.Error(t, err)
			assert.Empty(t, snaps.calls)
		})

		t.Run("No Session", func(t *testing.T) {
			sync := NewEarningsSync(&fakeEarnings{}, nil, nil)
			_, err := sync.Refresh(ctx, nil)
			assert.ErrorIs(t, err, shared.ErrNoSession)
		})
	})

	t.Run("ValidateAddForm", func(t *testing.T) {
		tests := []struct {
			name       string
			identifier string
			usd        string
			wantID     string
			wantAmount int64
			wantErr    string
		}{
			{"Valid", " song-1 ", "10.50", "song-1", 10500000, ""},
			{"Missing Identifier", "  ", "1", "", 0, "Please enter a Song ID or ISRC"},
			{"Missing Amount", "song-1", " ", "", 0, "Please enter a USD amount"},
			{"Too Many Decimals", "song-1", "1.1234567", "", 0, "Invalid amount: Maximum 6 decimal places allowed (got 7)"},
			{"Not A Number", "song-1", "abc", "", 0, "Invalid amount: Invalid number format"},
			{"Negative", "song-1", "-1", "", 0, "Invalid amount: Amount cannot be negative"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				id, amount, err := ValidateAddForm(tt.identifier, tt.usd)
				if tt.wantErr != "" {
					var formErr *FormError
					require.ErrorAs(t, err, &formErr)
					assert.Equal(t, tt.wantErr, formErr.Message)
					assert.ErrorIs(t, err, shared.ErrInvalidInput)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantAmount, amount)
			})
		}
	})

	t.Run("Add", func(t *testing.T) {
		t.Run("Creates Earning", func(t *testing.T) {
			svc := &fakeEarnings{}
			sync := NewEarningsSync(svc, nil, nil)

			require.NoError(t, sync.Add(ctx, testSession(), "USRC17607839", "0.000001"))
			require.Len(t, svc.creates, 1)
			assert.Equal(t, createCall{"USRC17607839", 1}, svc.creates[0])
		})

		t.Run("Invalid Form Makes No Request", func(t *testing.T) {
			svc := &fakeEarnings{}
			sync := NewEarningsSync(svc, nil, nil)

			err := sync.Add(ctx, testSession(), "song", "1.2.3")
			assert.Error(t, err)
			assert.Empty(t, svc.creates)
		})

		t.Run("No Session", func(t *testing.T) {
			err := NewEarningsSync(&fakeEarnings{}, nil, nil).Add(ctx, nil, "song", "1")
			var formErr *FormError
			require.ErrorAs(t, err, &formErr)
			assert.Equal(t, "No active session", formErr.Message)
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("Empty Selection Is No-op", func(t *testing.T) {
			svc := &fakeEarnings{}
			require.NoError(t, NewEarningsSync(svc, nil, nil).Delete(ctx, testSession(), nil))
			assert.Empty(t, svc.deletes)
		})

		t.Run("Single Call", func(t *testing.T) {
			svc := &fakeEarnings{}
			require.NoError(t, NewEarningsSync(svc, nil, nil).Delete(ctx, testSession(), []string{"a", "b"}))
			assert.Equal(t, [][]string{{"a", "b"}}, svc.deletes)
		})

		t.Run("Keeps Session Expiry", func(t *testing.T) {
			svc := &fakeEarnings{deleteErr: &services.SessionExpiredError{Reason: "Unauthorized - please login again"}}
			err := NewEarningsSync(svc, nil, nil).Delete(ctx, testSession(), []string{"a"})
			assert.True(t, services.IsSessionExpired(err))
			assert.Contains(t, err.Error(), "failed to delete earnings")
		})
	})
}
