package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/tasks"
)

// ConnectFunc logs in to an environment.
type ConnectFunc func(ctx context.Context, env services.Environment, creds services.Credentials) (*services.Session, error)

// PromptFunc asks the operator for whatever credentials are missing.
type PromptFunc func(env services.Environment, creds services.Credentials) (services.Credentials, error)

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(title string) (bool, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Every command that talks to the backend logs in first; sessions are never persisted between runs.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	input    io.Reader
	earnings tasks.EarningsService
	notifier *services.Notifier
	connect  ConnectFunc
	prompt   PromptFunc
	confirm  ConfirmFunc
	openDB   func() (*sql.DB, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Input    io.Reader
	Earnings tasks.EarningsService
	Connect  ConnectFunc
	Prompt   PromptFunc
	Confirm  ConfirmFunc
	OpenDB   func() (*sql.DB, error)
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Earnings == nil {
		opts.Earnings = services.NewEarningsGateway(opts.Logger)
	}

	r := &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		input:    opts.Input,
		earnings: opts.Earnings,
		notifier: services.NewNotifier(opts.Logger),
		connect:  opts.Connect,
		prompt:   opts.Prompt,
		confirm:  opts.Confirm,
		openDB:   opts.OpenDB,
	}

	if r.connect == nil {
		r.connect = func(ctx context.Context, env services.Environment, creds services.Credentials) (*services.Session, error) {
			return services.Connect(ctx, r.config, env, creds, r.logger)
		}
	}
	if r.prompt == nil {
		r.prompt = promptCredentials
	}
	if r.confirm == nil {
		r.confirm = promptConfirm
	}
	if r.openDB == nil {
		r.openDB = func() (*sql.DB, error) { return shared.OpenDatabase(r.config.Database) }
	}
	return r
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, earningsCommand, importsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// environment resolves --env, falling back to EARNX_ENVIRONMENT and then Garage.
func (r *Runner) environment(cmd *cli.Command) (services.Environment, error) {
	name := cmd.String("env")
	if name == "" {
		name = r.config.Defaults.Environment
	}
	return services.ParseEnvironment(name)
}

// credentials resolves flags, then EARNX_EMAIL/EARNX_PASSWORD, then prompts for the rest.
func (r *Runner) credentials(cmd *cli.Command, env services.Environment) (services.Credentials, error) {
	creds := services.Credentials{Email: cmd.String("email"), Password: cmd.String("password")}
	if creds.Email == "" {
		creds.Email = r.config.Defaults.Email
	}
	if creds.Password == "" {
		creds.Password = r.config.Defaults.Password
	}
	if creds.Validate() == nil {
		return creds, nil
	}
	return r.prompt(env, creds)
}

// login performs a single-shot login for the current command.
func (r *Runner) login(ctx context.Context, cmd *cli.Command) (*services.Session, error) {
	env, err := r.environment(cmd)
	if err != nil {
		return nil, err
	}

	creds, err := r.credentials(cmd, env)
	if err != nil {
		return nil, err
	}

	r.logger.Info("logging in", "environment", env, "email", creds.Email)
	s, err := r.connect(ctx, env, creds)
	if err != nil {
		return nil, err
	}
	r.notifier.LoginSucceeded(s)
	return s, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
