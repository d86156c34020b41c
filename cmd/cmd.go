// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// loginFlags select the environment and account for commands that talk to the backend.
func loginFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Backend environment (garage, studio)",
			Sources: cli.EnvVars("EARNX_ENVIRONMENT"),
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "Admin account email",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Admin account password (prefer EARNX_PASSWORD or the prompt)",
		},
	}
}

func withLogin(flags ...cli.Flag) []cli.Flag {
	return append(loginFlags(), flags...)
}

// setupCommand initializes local files
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the local database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a default config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand checks credentials and inspects tokens
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Verify admin credentials",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in and print the session summary",
				Flags:  withLogin(&cli.BoolFlag{Name: "json", Usage: "Output JSON"}),
				Action: r.AuthLogin,
			},
			{
				Name:  "whoami",
				Usage: "Decode an access token without verifying it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "token",
						Usage: "Token to decode (read from stdin when omitted)",
					},
				},
				Action: r.AuthWhoami,
			},
		},
	}
}

// earningsCommand manages earnings on the backend
func earningsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "earnings",
		Aliases: []string{"e"},
		Usage:   "List, add, delete and import earnings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List earnings",
				Flags: withLogin(
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, json, markdown)",
						Value:   "text",
					},
					&cli.BoolFlag{Name: "json", Usage: "Shorthand for --format json"},
					&cli.BoolFlag{Name: "csv", Usage: "Shorthand for --format csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by song id, stake address or memo"},
					&cli.StringFlag{Name: "from", Usage: "Created on or after (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "Created on or before (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "sort", Usage: "Sort column (created, amount, claimed)", Value: "created"},
					&cli.BoolFlag{Name: "desc", Usage: "Sort descending", Value: true},
					&cli.BoolFlag{Name: "offline", Usage: "Show the last fetched snapshot without logging in"},
				),
				Action: r.EarningsList,
			},
			{
				Name:  "add",
				Usage: "Add an earning to a song",
				Flags: withLogin(
					&cli.StringFlag{Name: "id", Usage: "Song ID or ISRC", Required: true},
					&cli.StringFlag{Name: "usd", Usage: "USD amount, up to 6 decimals", Required: true},
				),
				Action: r.EarningsAdd,
			},
			{
				Name:      "delete",
				Usage:     "Delete earnings by id",
				ArgsUsage: "<id>...",
				Flags: withLogin(
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation"},
				),
				Action: r.EarningsDelete,
			},
			{
				Name:  "import",
				Usage: "Import earnings from a CSV file (song id or ISRC, USD amount)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: withLogin(
					&cli.FloatFlag{Name: "rate", Usage: "Rows per second (0 uses the configured rate)"},
				),
				Action: r.EarningsImport,
			},
		},
	}
}

// importsCommand reads the local import history
func importsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "imports",
		Usage: "Local history of bulk imports",
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "List recorded imports, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Aliases: []string{"e"}, Usage: "Only this environment"},
					&cli.StringFlag{Name: "status", Usage: "Only this status (completed, aborted)"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: 20},
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.ImportsHistory,
			},
			{
				Name:  "show",
				Usage: "Show one import with its row outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.ImportsShow,
			},
		},
	}
}

// tuiCommand launches the interactive shell
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Launch the interactive console",
		Action:  r.TUI,
	}
}
