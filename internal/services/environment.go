package services

import (
	"fmt"
	"strings"

	"github.com/desertthunder/earnx/internal/shared"
)

// Environment selects the backend a session talks to. It is fixed for the lifetime of a [Session].
type Environment int

const (
	Garage Environment = iota // primary
	Studio                    // secondary
)

// Environments lists every environment in display order.
var Environments = []Environment{Garage, Studio}

// String returns the display name.
func (e Environment) String() string {
	switch e {
	case Studio:
		return "Studio"
	default:
		return "Garage"
	}
}

// Key returns the lowercase name used in config files, flags and storage.
func (e Environment) Key() string {
	return strings.ToLower(e.String())
}

// Index returns the position of e in [Environments].
func (e Environment) Index() int {
	if e == Studio {
		return 1
	}
	return 0
}

// EnvironmentFromIndex maps a selector index back to an environment. Unknown indexes select [Garage].
func EnvironmentFromIndex(i int) Environment {
	if i == 1 {
		return Studio
	}
	return Garage
}

// ParseEnvironment accepts "garage"/"primary" and "studio"/"secondary", case-insensitively.
// An empty name selects [Garage].
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "garage", "primary":
		return Garage, nil
	case "studio", "secondary":
		return Studio, nil
	default:
		return Garage, fmt.Errorf("%w: unknown environment %q", shared.ErrInvalidArgument, name)
	}
}

// BaseURL returns the configured base URL for e without a trailing slash.
func (e Environment) BaseURL(cfg shared.EnvironmentsConfig) string {
	url := cfg.Garage.BaseURL
	if e == Studio {
		url = cfg.Studio.BaseURL
	}
	return strings.TrimRight(url, "/")
}
