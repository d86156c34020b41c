package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tu "github.com/desertthunder/earnx/internal/testing"
)

// newBackendSession returns a session bound to fb whose access token expires after ttl.
func newBackendSession(t *testing.T, fb *tu.FakeBackend, ttl time.Duration, opts ...SessionOption) *Session {
	t.Helper()
	access, refresh, err := fb.IssuePair(ttl)
	require.NoError(t, err)

	client := NewAPIClient(fb.URL, "earnx-test/1.0", nil, nil)
	return NewSession(TokenPair{AccessToken: access, RefreshToken: refresh}, Garage, client, opts...)
}
