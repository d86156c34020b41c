package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/tasks"
)

// loginFields are bound to the login form. The password is cleared after every attempt.
type loginFields struct {
	email    string
	password string
	env      int
}

func newLoginForm(f *loginFields) *huh.Form {
	envOptions := make([]huh.Option[int], 0, len(services.Environments))
	for _, env := range services.Environments {
		envOptions = append(envOptions, huh.NewOption(env.String(), env.Index()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Environment").
				Options(envOptions...).
				Value(&f.env),
			huh.NewInput().
				Title("Email").
				Value(&f.email).
				Validate(required("Please enter your email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(required("Please enter your password")),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
}

// addFields are bound to the add-earnings form and kept when validation fails.
type addFields struct {
	identifier string
	usd        string
}

func newAddForm(f *addFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Song ID or ISRC").
				Value(&f.identifier),
			huh.NewInput().
				Title("USD Amount").
				Description(fmt.Sprintf("Up to %d decimal places", shared.MaxAmountDecimals)).
				Placeholder("10.50").
				Value(&f.usd),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
}

// validate runs the same checks the add operation does so errors show before any request.
func (f *addFields) validate() error {
	_, _, err := tasks.ValidateAddForm(f.identifier, f.usd)
	return err
}

// filterFields are bound to the date range form.
type filterFields struct {
	from string
	to   string
}

func newFilterForm(f *filterFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("From").
				Placeholder("YYYY-MM-DD").
				Value(&f.from).
				Validate(optionalDate),
			huh.NewInput().
				Title("To").
				Placeholder("YYYY-MM-DD").
				Value(&f.to).
				Validate(optionalDate),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
}

func required(message string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

func optionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}
