package services

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/token"
)

// DefaultRefreshBuffer is the lead time, in seconds, before expiry at which the access token is renewed.
const DefaultRefreshBuffer int64 = 60

// Session owns the token pair of one login and hands out access tokens that are not about to expire.
//
// A Session is safe for concurrent use. Concurrent callers that find the access token expiring
// share a single refresh request. Once a refresh is rejected the session is dead: every later
// call fails with the same [*SessionExpiredError] and the stale pair is left in place.
type Session struct {
	env    Environment
	client *APIClient
	logger *log.Logger
	buffer int64
	now    func() time.Time

	mu      sync.Mutex
	pair    TokenPair
	expired *SessionExpiredError

	refreshes singleflight.Group
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithRefreshBuffer overrides [DefaultRefreshBuffer].
func WithRefreshBuffer(seconds int64) SessionOption {
	return func(s *Session) {
		if seconds >= 0 {
			s.buffer = seconds
		}
	}
}

// WithClock replaces time.Now when computing remaining token lifetime.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession wraps pair for env. client must point at env's API; it is used for refreshes.
func NewSession(pair TokenPair, env Environment, client *APIClient, opts ...SessionOption) *Session {
	s := &Session{
		env:    env,
		client: client,
		logger: shared.NewLogger(io.Discard),
		buffer: DefaultRefreshBuffer,
		now:    time.Now,
		pair:   pair,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates creds through gateway and wraps the resulting pair in a new [Session].
func Login(ctx context.Context, gateway *AuthGateway, client *APIClient, env Environment, creds Credentials, opts ...SessionOption) (*Session, error) {
	pair, err := gateway.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return NewSession(pair, env, client, opts...), nil
}

// Connect logs in to env using the configured base URL, client identifier and refresh buffer.
func Connect(ctx context.Context, cfg *shared.Config, env Environment, creds Credentials, logger *log.Logger) (*Session, error) {
	client := NewEnvironmentClient(env, cfg, logger)
	opts := []SessionOption{WithSessionLogger(logger)}
	if cfg.Session.RefreshBufferSeconds > 0 {
		opts = append(opts, WithRefreshBuffer(cfg.Session.RefreshBufferSeconds))
	}
	return Login(ctx, NewAuthGateway(client, logger), client, env, creds, opts...)
}

// Environment returns the environment the session was created for.
func (s *Session) Environment() Environment { return s.env }

// Client returns the API client bound to the session's environment.
func (s *Session) Client() *APIClient { return s.client }

// Tokens returns a copy of the stored pair.
func (s *Session) Tokens() TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// CurrentToken returns the stored access token without checking its expiry.
func (s *Session) CurrentToken() string {
	return s.Tokens().AccessToken
}

// GetValidToken returns an access token that does not expire within the refresh buffer,
// refreshing the pair first when needed.
//
// A token with no readable expiry is treated as expiring. Fails with [*SessionExpiredError]
// when the refresh endpoint rejects the refresh token or answers with an unreadable pair,
// and with [*NetworkError] when it cannot be reached.
//
// Concurrent callers share one refresh. A caller whose ctx ends stops waiting with a
// [*NetworkError]; the shared refresh keeps running for the others.
func (s *Session) GetValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	pair, expired := s.pair, s.expired
	s.mu.Unlock()

	if expired != nil {
		return "", expired
	}
	if !token.ExpiresSoon(pair.AccessToken, s.buffer, s.now()) {
		return pair.AccessToken, nil
	}

	// The flight outlives any single caller; the client timeout bounds it.
	flight := context.WithoutCancel(ctx)
	ch := s.refreshes.DoChan(pair.RefreshToken, func() (any, error) {
		return s.refresh(flight, pair.RefreshToken)
	})

	select {
	case <-ctx.Done():
		return "", &NetworkError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refresh exchanges refreshToken for a new pair and swaps it in if the stored pair still holds refreshToken.
func (s *Session) refresh(ctx context.Context, refreshToken string) (string, error) {
	s.mu.Lock()
	current := s.pair
	s.mu.Unlock()

	// Another caller finished a refresh between our read and this call.
	if current.RefreshToken != refreshToken && !token.ExpiresSoon(current.AccessToken, s.buffer, s.now()) {
		return current.AccessToken, nil
	}

	s.logger.Info("access token expires soon, refreshing", "environment", s.env)

	resp, err := s.client.Do(ctx, http.MethodGet, refreshPath, nil, bearerToken(refreshToken))
	if err != nil {
		s.logger.Warn("token refresh failed", "environment", s.env, "error", err)
		return "", err
	}
	if !resp.OK() {
		httpErr := newHTTPError(resp.StatusCode, resp.Body)
		s.logger.Warn("token refresh rejected", "environment", s.env, "status", httpErr.Status, "message", httpErr.Message)
		return "", s.kill("Refresh failed: " + httpErr.Message)
	}

	next, err := parseTokenPair(resp.Body)
	if err != nil {
		s.logger.Warn("token refresh response did not parse", "environment", s.env, "error", err)
		return "", s.kill("Refresh failed: " + err.Error())
	}

	s.mu.Lock()
	if s.pair.RefreshToken == refreshToken {
		s.pair = next
	}
	s.mu.Unlock()

	s.logger.Info("token refresh successful", "environment", s.env)
	return next.AccessToken, nil
}

// kill marks the session dead, leaving the stored pair untouched.
func (s *Session) kill(reason string) *SessionExpiredError {
	err := &SessionExpiredError{Reason: reason}
	s.mu.Lock()
	if s.expired == nil {
		s.expired = err
	}
	s.mu.Unlock()
	return err
}

// Expired reports whether a refresh has been rejected.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired != nil
}

// TokenSource adapts the session to [oauth2.TokenSource]. Each Token call goes through
// [Session.GetValidToken] using ctx.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, session: s}
}

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	raw, err := ts.session.GetValidToken(ts.ctx)
	if err != nil {
		return nil, err
	}

	tok := bearerToken(raw)
	if claims, err := token.Decode(raw); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = time.Unix(*claims.ExpiresAt, 0)
	}
	return tok, nil
}
