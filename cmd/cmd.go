// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// rootCommand builds the mixlink command tree around r.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mixlink",
		Usage:   "Serve artist landing pages that create Spotify playlists for listeners",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MIXLINK_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.LoadConfig,
		Commands: r.register(),
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve landing pages and the authorization callback",
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml at the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// catalogCommand inspects the artist playlist catalog.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect the artist playlist catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List artists in the catalog",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:  "show",
				Usage: "Print an artist's playlist template",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file (markdown writes a directory with README.md and cover.jpg)",
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Resolve tracks against Spotify before printing",
					},
				},
				Action: r.CatalogShow,
			},
			{
				Name:  "verify",
				Usage: "Check that every track reference resolves on Spotify",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist"},
				},
				Action: r.CatalogVerify,
			},
		},
	}
}

// historyCommand lists created playlists.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List playlists created for listeners",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Only show playlists for this artist",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// sessionsCommand manages stored listener credentials.
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Manage stored listener credentials",
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Count sessions with stored credentials",
				Action: r.SessionsCount,
			},
			{
				Name:  "prune",
				Usage: "Delete credentials not updated within --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age cutoff",
						Value: 90 * 24 * time.Hour,
					},
				},
				Action: r.SessionsPrune,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing the catalog.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse the catalog interactively",
		Action:  r.TUI,
	}
}
