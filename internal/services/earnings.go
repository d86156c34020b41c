package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
)

type createEarningRequest struct {
	USDAmount int64 `json:"usdAmount"`
}

// EarningsGateway performs the admin earnings calls on behalf of a [Session].
//
// Every call first obtains a token from the session and performs no request when that fails.
// A 401 response always becomes a [*SessionExpiredError], even right after a successful
// refresh, since the backend may revoke tokens on its own.
type EarningsGateway struct {
	logger *log.Logger
}

// NewEarningsGateway creates an EarningsGateway.
func NewEarningsGateway(logger *log.Logger) *EarningsGateway {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &EarningsGateway{logger: logger}
}

// ListEarnings fetches every earning.
func (g *EarningsGateway) ListEarnings(ctx context.Context, s *Session) ([]models.Earning, error) {
	resp, err := g.send(ctx, s, http.MethodGet, earningsPath, nil)
	if err != nil {
		g.logger.Warn("list earnings failed", "error", err)
		return nil, err
	}

	var earnings []models.Earning
	if err := json.Unmarshal(resp.Body, &earnings); err != nil {
		g.logger.Warn("list earnings response did not parse", "error", err)
		return nil, &HTTPError{Status: http.StatusOK, Message: fmt.Sprintf("Failed to parse response: %v", err)}
	}

	g.logger.Info("fetched earnings", "environment", s.Environment(), "count", len(earnings))
	return earnings, nil
}

// CreateEarning adds an earning of microUSD to the song with the given id or ISRC.
func (g *EarningsGateway) CreateEarning(ctx context.Context, s *Session, identifier string, microUSD int64) error {
	path := earningsPath + "/" + url.PathEscape(identifier)

	if _, err := g.send(ctx, s, http.MethodPost, path, createEarningRequest{USDAmount: microUSD}); err != nil {
		g.logger.Warn("add earnings failed", "identifier", identifier, "error", err)
		return err
	}

	g.logger.Info("earnings added", "identifier", identifier, "amount", microUSD)
	return nil
}

// DeleteEarnings removes the earnings with the given ids in one call. An empty list is still sent.
func (g *EarningsGateway) DeleteEarnings(ctx context.Context, s *Session, ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	if _, err := g.send(ctx, s, http.MethodDelete, earningsPath, ids); err != nil {
		g.logger.Warn("delete earnings failed", "count", len(ids), "error", err)
		return err
	}

	g.logger.Info("deleted earnings", "count", len(ids))
	return nil
}

// send authorizes and performs one request, classifying every non-2xx response.
func (g *EarningsGateway) send(ctx context.Context, s *Session, method, path string, body any) (*Response, error) {
	if s == nil {
		return nil, shared.ErrNoSession
	}

	tok, err := s.TokenSource(ctx).Token()
	if err != nil {
		return nil, err
	}

	resp, err := s.Client().Do(ctx, method, path, body, tok)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.OK():
		return resp, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &SessionExpiredError{Reason: sessionExpiredMessage}
	default:
		return nil, newHTTPError(resp.StatusCode, resp.Body)
	}
}
