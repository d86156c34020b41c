package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/token"
)

// sessionSummary describes a token without exposing it.
type sessionSummary struct {
	Environment string     `json:"environment,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Admin       bool       `json:"admin"`
	Type        string     `json:"type,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn   string     `json:"expiresIn,omitempty"`
}

func summarize(raw string, now time.Time) (sessionSummary, error) {
	claims, err := token.Decode(raw)
	if err != nil {
		return sessionSummary{}, err
	}

	summary := sessionSummary{Admin: claims.IsAdmin()}
	if claims.Subject != nil {
		summary.Subject = *claims.Subject
	}
	if claims.Type != nil {
		summary.Type = *claims.Type
	}
	if claims.ExpiresAt != nil {
		exp := time.Unix(*claims.ExpiresAt, 0).UTC()
		summary.ExpiresAt = &exp
	}
	if secs, ok := token.SecondsUntilExpiry(raw, now); ok {
		summary.ExpiresIn = (time.Duration(secs) * time.Second).String()
	}
	return summary, nil
}

// AuthLogin verifies the credentials and prints a summary of the issued access token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	s, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}

	summary, err := summarize(s.CurrentToken(), time.Now())
	if err != nil {
		return err
	}
	summary.Environment = s.Environment().Key()

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}
	return r.writeSummary(summary)
}

// AuthWhoami decodes a token given by flag or on stdin. The signature is not verified.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(cmd.String("token"))
	if raw == "" {
		line, err := bufio.NewReader(r.input).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: pass --token or pipe a token on stdin", shared.ErrMissingArgument)
		}
		raw = strings.TrimSpace(line)
	}

	summary, err := summarize(raw, time.Now())
	if err != nil {
		return err
	}
	return r.writeJSON(summary, true)
}

func (r *Runner) writeSummary(s sessionSummary) error {
	r.writePlain("✓ Logged in to %s\n", s.Environment)
	if s.Subject != "" {
		r.writePlain("Subject: %s\n", s.Subject)
	}
	r.writePlain("Admin: %t\n", s.Admin)
	if s.ExpiresAt != nil {
		r.writePlain("Access token expires: %s (in %s)\n", s.ExpiresAt.Format(time.RFC3339), s.ExpiresIn)
	}
	return nil
}
