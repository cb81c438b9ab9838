// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func projectArg() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{Name: "project", UsageText: "project number or id"},
	}
}

// setupCommand handles first-run configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the local database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the example config.toml and validate it",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles account sessions.
func authCommand(r *Runner) *cli.Command {
	credentialFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (prompted when omitted)",
				Sources: cli.EnvVars("LENAVS_PASSWORD"),
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign up, sign in and inspect the current session",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: append(credentialFlags(), &cli.StringFlag{
					Name:  "name",
					Usage: "Display name",
				}),
				Action: r.AuthSignUp,
			},
			{
				Name:   "signin",
				Usage:  "Sign in with email and password",
				Flags:  credentialFlags(),
				Action: r.AuthSignIn,
			},
			{
				Name:   "signout",
				Usage:  "Sign out and forget the stored session",
				Action: r.AuthSignOut,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user, plan and credits",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// creditsCommand handles the plan and credit balance.
func creditsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Show the plan and remaining credits",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the balance loaded at startup",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CreditsShow,
			},
			{
				Name:   "refresh",
				Usage:  "Re-read the balance from the server",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CreditsRefresh,
			},
		},
	}
}

func projectSettingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "audio",
			Usage: "Audio track to render: original or instrumental",
		},
		&cli.StringFlag{
			Name:  "video-format",
			Usage: "Output container: mp4, avi, mov or mkv",
		},
		&cli.StringFlag{
			Name:  "background",
			Usage: "Background color used when no video or image is uploaded",
		},
	}
}

func stanzaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Usage: "Start time (mm:ss)"},
		&cli.StringFlag{Name: "end", Usage: "End time (mm:ss)"},
		&cli.StringFlag{Name: "color", Usage: "Text color"},
		&cli.IntFlag{Name: "size", Usage: "Font size"},
		&cli.StringFlag{Name: "align", Usage: "left, center or right"},
		&cli.StringFlag{Name: "transition", Usage: "Transition effect"},
	}
}

// projectCommand handles editor projects.
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"p"},
		Usage:   "Create and edit lyric video projects",
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Create a project",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     projectSettingsFlags(),
				Action:    r.ProjectNew,
			},
			{
				Name:      "edit",
				Usage:     "Change project settings",
				Arguments: projectArg(),
				Flags: append(projectSettingsFlags(), &cli.StringFlag{
					Name:  "name",
					Usage: "New project name",
				}),
				Action: r.ProjectEdit,
			},
			{
				Name:   "list",
				Usage:  "List your projects",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ProjectList,
			},
			{
				Name:      "show",
				Usage:     "Preview a project's stanza timeline",
				Arguments: projectArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "text, markdown, csv, srt or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.ProjectShow,
			},
			{
				Name:      "lyrics",
				Usage:     "Split lyrics into stanzas, replacing the current ones",
				Arguments: projectArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Lyrics file to upload"},
					&cli.StringFlag{Name: "text", Usage: "Lyrics text"},
				},
				Action: r.ProjectLyrics,
			},
			{
				Name:  "stanza",
				Usage: "Edit individual stanzas",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Append a stanza",
						Arguments: projectArg(),
						Flags:     append(stanzaFlags(), &cli.StringFlag{Name: "text", Usage: "Stanza text", Required: true}),
						Action:    r.StanzaAdd,
					},
					{
						Name:      "edit",
						Usage:     "Change a stanza's text, timing or style",
						Arguments: projectArg(),
						Flags: append(stanzaFlags(),
							&cli.IntFlag{Name: "id", Usage: "Stanza id", Required: true},
							&cli.StringFlag{Name: "text", Usage: "Stanza text"},
						),
						Action: r.StanzaEdit,
					},
					{
						Name:      "remove",
						Usage:     "Delete a stanza",
						Arguments: projectArg(),
						Flags:     []cli.Flag{&cli.IntFlag{Name: "id", Usage: "Stanza id", Required: true}},
						Action:    r.StanzaRemove,
					},
				},
			},
			{
				Name:      "time",
				Usage:     "Set a stanza's start and end time",
				Arguments: projectArg(),
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "Stanza id", Required: true},
					&cli.StringFlag{Name: "start", Usage: "Start time (mm:ss)", Required: true},
					&cli.StringFlag{Name: "end", Usage: "End time (mm:ss)", Required: true},
				},
				Action: r.StanzaEdit,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a project",
				Arguments: projectArg(),
				Action:    r.ProjectRemove,
			},
		},
	}
}

// mediaCommand handles media uploads.
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Upload audio, video and images",
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload files concurrently and attach them to a project",
				Arguments: projectArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "original", Usage: "Original song audio"},
					&cli.StringFlag{Name: "instrumental", Usage: "Instrumental (playback) audio"},
					&cli.StringFlag{Name: "video", Usage: "Background video"},
					&cli.StringFlag{Name: "image", Usage: "Background image"},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent uploads (max 6)",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Uploads started per second",
						Value: 2,
					},
				},
				Action: r.MediaUpload,
			},
		},
	}
}

// exportCommand renders a video.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render a project into a video (uses one credit on the free plan)",
		Arguments: projectArg(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the video in the browser when done",
			},
		},
		Action: r.Export,
	}
}

// upgradeCommand opens the Pro checkout.
func upgradeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upgrade",
		Usage: "Upgrade to the Pro plan for unlimited exports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "currency",
				Usage: "BRL or USD (defaults to checkout.currency in config)",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for the checkout to return; 0 opens the link and exits",
				Value: 10 * time.Minute,
			},
		},
		Action: r.Upgrade,
	}
}

// apiCommand handles raw backend requests.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Make authenticated requests to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET request to an API path",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST request with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand launches the dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive account and export dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the dashboard is open",
				Value: "./tmp/lenavs-tui.log",
			},
		},
		Action: r.TUI,
	}
}
