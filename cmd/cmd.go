// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/relwatch/internal/formatter"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/urfave/cli/v3"
)

func userFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Username of the account",
		Required: required,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// setupCommand initializes the config file and the database schema
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Flags:  jsonFlags(),
				Action: r.MigrationStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.MigrationRollback,
			},
		},
	}
}

// daemonCommand runs the sync loop or one of its halves
func daemonCommand(r *Runner) *cli.Command {
	quiet := &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "Do not print progress",
	}

	return &cli.Command{
		Name:  "daemon",
		Usage: "Sweep artists and deliver release notifications",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Alternate sweeps and notification passes until interrupted",
				Flags:  []cli.Flag{quiet},
				Action: r.DaemonRun,
			},
			{
				Name:   "sweep",
				Usage:  "Check every stored artist for release changes once",
				Flags:  []cli.Flag{quiet},
				Action: r.DaemonSweep,
			},
			{
				Name:   "notify",
				Usage:  "Email every user with pending notifications once",
				Flags:  []cli.Flag{quiet},
				Action: r.DaemonNotify,
			},
		},
	}
}

// jobsCommand manages the durable job queue
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect, enqueue and process background jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queued jobs in processing order",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only show jobs of this kind",
					},
				}, jsonFlags()...),
				Action: r.JobsList,
			},
			{
				Name:   "process",
				Usage:  "Run queued jobs until the queue is empty",
				Action: r.JobsProcess,
			},
			{
				Name:      "add-artist",
				Usage:     "Queue a free-text artist search for a user",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{userFlag(true)},
				Action:    r.JobsAddArtist,
			},
			{
				Name:      "backfill",
				Usage:     "Queue a release group backfill for an artist",
				ArgsUsage: "<artist-mbid>",
				Action:    r.JobsBackfill,
			},
			{
				Name:  "import-lastfm",
				Usage: "Queue a Last.fm library import for a user",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.StringFlag{
						Name:     "lastfm-user",
						Usage:    "Last.fm username to import from",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Maximum number of artists to subscribe",
						Value: 50,
					},
					&cli.StringFlag{
						Name:  "period",
						Usage: "Chart period (" + strings.Join(models.ImportPeriods, ", ") + ")",
						Value: "overall",
					},
				},
				Action: r.JobsImportLastFM,
			},
			{
				Name:      "cover",
				Usage:     "Queue a cover art download for a release group",
				ArgsUsage: "<release-group-mbid>",
				Action:    r.JobsCover,
			},
		},
	}
}

// artistsCommand manages subscriptions
func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artists",
		Usage: "Stored artists and subscriptions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored artists, or a user's subscriptions",
				Flags:  append([]cli.Flag{userFlag(false)}, jsonFlags()...),
				Action: r.ArtistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a stored artist and its followers",
				ArgsUsage: "<artist-mbid>",
				Flags:     []cli.Flag{userFlag(false)},
				Action:    r.ArtistsShow,
			},
			{
				Name:      "subscribe",
				Usage:     "Follow an artist by MusicBrainz id",
				ArgsUsage: "<artist-mbid>",
				Flags:     []cli.Flag{userFlag(true)},
				Action:    r.ArtistsSubscribe,
			},
			{
				Name:      "unsubscribe",
				Usage:     "Stop following an artist",
				ArgsUsage: "<artist-mbid>",
				Flags:     []cli.Flag{userFlag(true)},
				Action:    r.ArtistsUnsubscribe,
			},
		},
	}
}

// releasesCommand lists and exports stored release groups
func releasesCommand(r *Runner) *cli.Command {
	formats := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		formats[i] = string(f)
	}

	return &cli.Command{
		Name:    "releases",
		Aliases: []string{"rel"},
		Usage:   "Release group listings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List release groups by artist, by user or as a calendar",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Listing mode (artist, user, calendar)",
						Value:   "calendar",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Artist MusicBrainz id for --mode artist",
					},
					userFlag(false),
					&cli.StringFlag{
						Name:  "until",
						Usage: "Latest date for --mode calendar (YYYY[-MM[-DD]]), defaults to today",
					},
					&cli.StringFlag{
						Name:  "types",
						Usage: "Comma-separated release types, defaults to all",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of release groups",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of release groups to skip",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (" + strings.Join(formats, ", ") + ")",
						Value:   string(formatter.FormatText),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.ReleasesList,
			},
			{
				Name:      "star",
				Usage:     "Star or unstar a release group",
				ArgsUsage: "<release-group-mbid>",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.BoolFlag{
						Name:  "unset",
						Usage: "Remove the star",
					},
				},
				Action: r.ReleasesStar,
			},
		},
	}
}

// usersCommand manages accounts and their notification preferences
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Accounts and notification preferences",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List accounts",
				Flags:  jsonFlags(),
				Action: r.UsersList,
			},
			{
				Name:  "add",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Account name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Notification address",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "verified",
						Usage: "Mark the address as verified",
					},
					&cli.StringFlag{
						Name:  "types",
						Usage: "Comma-separated release types to be notified about, defaults to all",
					},
				},
				Action: r.UsersAdd,
			},
			{
				Name:  "prefs",
				Usage: "Show or change notification preferences",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.BoolFlag{
						Name:  "notify",
						Usage: "Enable or disable notification emails",
					},
					&cli.BoolFlag{
						Name:  "verified",
						Usage: "Mark the address as verified or unverified",
					},
					&cli.StringFlag{
						Name:  "types",
						Usage: "Comma-separated release types to be notified about",
					},
				},
				Action: r.UsersPrefs,
			},
			{
				Name:  "searches",
				Usage: "List artist searches that could not be matched",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.StringFlag{
						Name:  "delete",
						Usage: "Remove a saved search",
					},
				},
				Action: r.UsersSearches,
			},
		},
	}
}
