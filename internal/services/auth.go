package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/token"
)

// TokenPair is the credential pair issued by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credentials are used for a single login call and never stored.
type Credentials struct {
	Email    string
	Password string
}

// Validate rejects blank fields.
func (c Credentials) Validate() error {
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("%w: email and password are required", shared.ErrMissingCredentials)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthGateway exchanges credentials for a [TokenPair] and admits only admin accounts.
type AuthGateway struct {
	client *APIClient
	logger *log.Logger
}

// NewAuthGateway creates an AuthGateway that logs in through client.
func NewAuthGateway(client *APIClient, logger *log.Logger) *AuthGateway {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &AuthGateway{client: client, logger: logger}
}

// Login exchanges creds for a token pair.
//
// Fails with [*NetworkError], [*HTTPError], [*ParseError] (including an undecodable access token),
// or [shared.ErrNotAdmin] when the admin claim is anything other than true.
func (g *AuthGateway) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	if err := creds.Validate(); err != nil {
		return TokenPair{}, err
	}

	resp, err := g.client.Do(ctx, http.MethodPost, loginPath, loginRequest(creds), nil)
	if err != nil {
		g.logger.Warn("login failed", "email", creds.Email, "error", err)
		return TokenPair{}, err
	}
	if !resp.OK() {
		httpErr := newHTTPError(resp.StatusCode, resp.Body)
		g.logger.Warn("login rejected", "email", creds.Email, "status", httpErr.Status, "message", httpErr.Message)
		return TokenPair{}, httpErr
	}

	pair, err := parseTokenPair(resp.Body)
	if err != nil {
		g.logger.Error("login response did not parse", "email", creds.Email, "error", err)
		return TokenPair{}, err
	}

	claims, err := token.Decode(pair.AccessToken)
	if err != nil {
		g.logger.Error("access token did not decode", "email", creds.Email, "error", err)
		return TokenPair{}, &ParseError{What: "access token", Err: err}
	}
	if !claims.IsAdmin() {
		g.logger.Warn("login rejected: not an admin", "email", creds.Email)
		return TokenPair{}, shared.ErrNotAdmin
	}

	g.logger.Info("login succeeded", "email", creds.Email)
	return pair, nil
}

func parseTokenPair(body []byte) (TokenPair, error) {
	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return TokenPair{}, &ParseError{What: "token pair", Err: err}
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, &ParseError{What: "token pair", Err: fmt.Errorf("missing accessToken or refreshToken")}
	}
	return pair, nil
}
