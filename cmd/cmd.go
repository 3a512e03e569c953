// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

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

func withJSON(flags ...cli.Flag) []cli.Flag {
	return append(flags, jsonFlags()...)
}

func workerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Concurrent workers (max 10)",
			Value:   5,
		},
		&cli.FloatFlag{
			Name:  "rate",
			Usage: "Operations per second",
			Value: 5,
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create config.toml if missing and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Flags:  jsonFlags(),
				Action: r.SetupStatus,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with the identity provider and print an API token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: loginTimeout,
			},
		},
		Action: r.Login,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks, users and playlists",
		ArgsUsage: "<query>",
		Flags: withJSON(
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to print (0 for all)",
			},
		),
		Action: r.Search,
	}
}

func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Track catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the newest tracks",
				Flags: withJSON(
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of tracks to skip",
					},
				),
				Action: r.TracksList,
			},
			{
				Name:      "upload",
				Usage:     "Store an audio file and create its track",
				ArgsUsage: "<audio-file>",
				Flags: withJSON(
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Uploader user ID or username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Aliases:  []string{"a"},
						Usage:    "Track artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "genre",
						Usage: "Track genre",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Track description",
					},
					&cli.IntFlag{
						Name:  "duration",
						Usage: "Duration in seconds",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image file",
					},
				),
				Action: r.TracksUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete a track and its stored media",
				ArgsUsage: "<track-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Uploader user ID or username",
						Required: true,
					},
				},
				Action: r.TracksDelete,
			},
		},
	}
}

func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "User operations",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a user with their tracks and public playlists",
				ArgsUsage: "<user-id|username>",
				Flags:     jsonFlags(),
				Action:    r.UsersShow,
			},
			{
				Name:      "tracks",
				Usage:     "List a user's uploads",
				ArgsUsage: "<user-id|username>",
				Flags:     jsonFlags(),
				Action:    r.UsersTracks,
			},
		},
	}
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Owner user ID or username",
		Required: true,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List a user's playlists, private ones included",
				Flags:  withJSON(ownerFlag()),
				Action: r.PlaylistsList,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				ArgsUsage: "<name>",
				Flags: withJSON(
					ownerFlag(),
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "private",
						Usage: "Hide the playlist from other users and search",
					},
				),
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				ArgsUsage: "<playlist-id>",
				Flags:     jsonFlags(),
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "add",
				Usage:     "Append a track to a playlist",
				ArgsUsage: "<playlist-id> <track-id>",
				Flags:     []cli.Flag{ownerFlag()},
				Action:    r.PlaylistsAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a track from a playlist",
				ArgsUsage: "<playlist-id> <track-id>",
				Flags:     []cli.Flag{ownerFlag()},
				Action:    r.PlaylistsRemove,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				ArgsUsage: "<playlist-id>",
				Flags:     []cli.Flag{ownerFlag()},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "export",
				Usage:     "Write a playlist to disk",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path without extension (defaults to the playlist ID)",
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Download cover art for markdown exports",
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Bulk import tracks from a JSON manifest",
		ArgsUsage: "<manifest.json>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Uploader user ID or username (default: a random existing user per track)",
			},
		}, workerFlags()...),
		Action: r.Seed,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every playlist of a user",
		Flags: append([]cli.Flag{
			ownerFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: tunebox_export_{timestamp})",
			},
			&cli.BoolFlag{
				Name:  "covers",
				Usage: "Download cover art for markdown exports",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the export summary as JSON",
			},
		}, workerFlags()...),
		Action: r.Export,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Search and play in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Start by playing this user's uploads",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Initial search query",
			},
			&cli.FloatFlag{
				Name:  "speed",
				Usage: "Media seconds per wall-clock second",
				Value: 1,
			},
		},
		Action: r.Play,
	}
}
