package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
)

// promptCredentials asks for the missing email and password. The password is never echoed.
func promptCredentials(env services.Environment, creds services.Credentials) (services.Credentials, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&creds.Email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password),
		).Title(fmt.Sprintf("Log in to %s", env)),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return creds, fmt.Errorf("%w: login cancelled", shared.ErrMissingCredentials)
		}
		return creds, fmt.Errorf("failed to read credentials: %w", err)
	}
	return creds, creds.Validate()
}

func promptConfirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
