package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/earnx/internal/shared"
	tu "github.com/desertthunder/earnx/internal/testing"
)

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Fresh Token Is Returned Without Network", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, time.Hour)
		before := s.Tokens()

		tok, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, before.AccessToken, tok)
		assert.Zero(t, fb.State().RefreshCalls)
		assert.Empty(t, fb.State().UserAgents)
	})

	t.Run("Expiring Token Triggers One Refresh", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, 30*time.Second)
		before := s.Tokens()

		tok, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, before.AccessToken, tok)
		assert.Equal(t, 1, fb.State().RefreshCalls)

		after := s.Tokens()
		assert.Equal(t, tok, after.AccessToken)
		assert.NotEqual(t, before.RefreshToken, after.RefreshToken)

		again, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, tok, again)
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Exactly At Buffer Refreshes", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, time.Hour)

		claimsExp := time.Now().Add(time.Hour).Unix()
		s.now = func() time.Time { return time.Unix(claimsExp-DefaultRefreshBuffer, 0) }

		_, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Token Without Expiry Is Refreshed", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		_, refresh, err := fb.IssuePair(time.Hour)
		require.NoError(t, err)

		client := NewAPIClient(fb.URL, "", nil, nil)
		s := NewSession(TokenPair{AccessToken: "opaque", RefreshToken: refresh}, Garage, client)

		tok, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, "opaque", tok)
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Refresh Uses GET With Refresh Token", func(t *testing.T) {
		var method, auth string
		client := &http.Client{Transport: tu.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			method, auth = r.Method, r.Header.Get("Authorization")
			return tu.NewResponse(http.StatusInternalServerError, "nope"), nil
		})}

		s := NewSession(TokenPair{AccessToken: "a", RefreshToken: "the-refresh-token"}, Garage,
			NewAPIClient("https://garage.invalid", "", client, nil))

		_, err := s.GetValidToken(ctx)
		require.Error(t, err)
		assert.Equal(t, http.MethodGet, method)
		assert.Equal(t, "Bearer the-refresh-token", auth)
	})

	t.Run("Rejected Refresh Expires Session And Keeps Pair", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		fb.Configure(func(st *tu.BackendState) { st.RefreshStatus = http.StatusUnauthorized })
		s := newBackendSession(t, fb, 10*time.Second)
		before := s.Tokens()

		_, err := s.GetValidToken(ctx)
		require.Error(t, err)
		assert.True(t, IsSessionExpired(err))
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		assert.Contains(t, err.Error(), "Refresh failed: refresh rejected")
		assert.Equal(t, before, s.Tokens())
		assert.True(t, s.Expired())

		_, err = s.GetValidToken(ctx)
		assert.True(t, IsSessionExpired(err))
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Unparseable Refresh Response Expires Session", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(tu.NewResponse(http.StatusOK, `{"accessToken":""}`), nil)}
		s := NewSession(TokenPair{AccessToken: "a", RefreshToken: "r"}, Garage,
			NewAPIClient("https://garage.invalid", "", client, nil))

		_, err := s.GetValidToken(ctx)
		assert.True(t, IsSessionExpired(err))
		assert.Equal(t, TokenPair{AccessToken: "a", RefreshToken: "r"}, s.Tokens())
	})

	t.Run("Unreachable Refresh Endpoint Is A Network Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("timeout"))}
		s := NewSession(TokenPair{AccessToken: "a", RefreshToken: "r"}, Garage,
			NewAPIClient("https://garage.invalid", "", client, nil))

		_, err := s.GetValidToken(ctx)
		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
		assert.False(t, IsSessionExpired(err))
		assert.False(t, s.Expired())
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, 5*time.Second)

		const callers = 16
		tokens := make([]string, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tokens[i], errs[i] = s.GetValidToken(ctx)
			}()
		}
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
			assert.Equal(t, s.CurrentToken(), tokens[i])
		}
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Cancelled Caller Does Not Fail Shared Refresh", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		next := TokenPair{AccessToken: tu.AccessToken(t, true, time.Hour), RefreshToken: "refresh-2"}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(next)
		}))
		defer server.Close()

		s := NewSession(TokenPair{AccessToken: tu.AccessToken(t, true, 5*time.Second), RefreshToken: "refresh-1"},
			Garage, NewAPIClient(server.URL, "earnx-test/1.0", nil, nil))

		cancelCtx, cancel := context.WithCancel(ctx)
		first := make(chan error, 1)
		go func() {
			_, err := s.GetValidToken(cancelCtx)
			first <- err
		}()
		<-started

		type result struct {
			tok string
			err error
		}
		second := make(chan result, 1)
		go func() {
			tok, err := s.GetValidToken(ctx)
			second <- result{tok, err}
		}()

		cancel()
		err := <-first
		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.ErrorIs(t, err, context.Canceled)

		time.Sleep(20 * time.Millisecond)
		close(release)

		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, next.AccessToken, res.tok)
		assert.Equal(t, next, s.Tokens())
		assert.False(t, s.Expired())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Custom Refresh Buffer", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, 5*time.Minute, WithRefreshBuffer(600))

		_, err := s.GetValidToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fb.State().RefreshCalls)
	})

	t.Run("Token Source", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newBackendSession(t, fb, time.Hour)

		tok, err := s.TokenSource(ctx).Token()
		require.NoError(t, err)
		assert.Equal(t, s.CurrentToken(), tok.AccessToken)
		assert.Equal(t, "Bearer", tok.Type())
		assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
	})
}
