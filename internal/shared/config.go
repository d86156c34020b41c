package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Environments EnvironmentsConfig `toml:"environments"`
	Client       ClientConfig       `toml:"client"`
	Session      SessionConfig      `toml:"session"`
	Import       ImportConfig       `toml:"import"`
	Database     DatabaseConfig     `toml:"database"`
	Log          LogConfig          `toml:"log"`

	// Default environment name and credentials, only ever populated from the process environment.
	Defaults DefaultsConfig `toml:"-"`
}

// EnvironmentsConfig holds the base URL of each backend environment.
type EnvironmentsConfig struct {
	Garage EndpointConfig `toml:"garage"`
	Studio EndpointConfig `toml:"studio"`
}

// EndpointConfig contains a single backend's base URL.
type EndpointConfig struct {
	BaseURL string `toml:"base_url"`
}

// ClientConfig contains HTTP client settings.
type ClientConfig struct {
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SessionConfig contains token lifecycle settings.
type SessionConfig struct {
	RefreshBufferSeconds int64 `toml:"refresh_buffer_seconds"`
}

// ImportConfig contains bulk import settings.
type ImportConfig struct {
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultsConfig carries values read from EARNX_* variables.
type DefaultsConfig struct {
	Environment string
	Email       string
	Password    string
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from EARNX_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("EARNX_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getenv("EARNX_USER_AGENT"); v != "" {
		c.Client.UserAgent = v
	}
	c.Defaults.Environment = getenv("EARNX_ENVIRONMENT")
	c.Defaults.Email = getenv("EARNX_EMAIL")
	c.Defaults.Password = getenv("EARNX_PASSWORD")
}

// Validate reports configuration values the client cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Environments.Garage.BaseURL) == "" {
		return fmt.Errorf("%w: environments.garage.base_url is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Environments.Studio.BaseURL) == "" {
		return fmt.Errorf("%w: environments.studio.base_url is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Client.UserAgent) == "" {
		return fmt.Errorf("%w: client.user_agent must not be empty", ErrInvalidConfig)
	}
	if c.Session.RefreshBufferSeconds < 0 {
		return fmt.Errorf("%w: session.refresh_buffer_seconds must not be negative", ErrInvalidConfig)
	}
	if c.Import.RateLimit < 0 {
		return fmt.Errorf("%w: import.rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
