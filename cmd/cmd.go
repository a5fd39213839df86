// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that opens the database.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and first-run settings.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config, database, and library settings",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "library",
				Usage: "Library root directory for downloaded media",
			},
		},
		Action: r.Setup,
	}
}

// daemonCommand runs the background managers until interrupted.
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "daemon",
		Usage:  "Run the sync, download, and metadata managers until interrupted",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Daemon,
	}
}

// monitorCommand runs the managers with a live terminal monitor attached.
func monitorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"tui"},
		Usage:   "Run the managers with a live activity monitor",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.Monitor,
	}
}

// sourceCommand handles source subscriptions.
func sourceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "source",
		Aliases: []string{"src"},
		Usage:   "Manage feed sources",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Subscribe to a remote channel or feed",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "creator",
						Usage:    "Creator ID the source belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "platform",
						Usage:    "Platform tag (youtube or patreon)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Channel or campaign URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.StringFlag{
						Name:  "credential",
						Usage: "Credential ID for authenticated platforms",
					},
				},
				Action: r.SourceAdd,
			},
			{
				Name:  "list",
				Usage: "List sources and their sync state",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.SourceList,
			},
			{
				Name:  "sync",
				Usage: "Sync one source, a creator's sources, or everything",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "creator",
						Usage: "Sync every source belonging to this creator",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Sync every active source",
					},
				},
				Action: r.SourceSync,
			},
		},
	}
}

// feedCommand handles discovered feed items.
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Inspect and download feed items",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a source's feed items",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Also export the feed to this CSV file",
					},
				},
				Action: r.FeedList,
			},
			{
				Name:  "download",
				Usage: "Download feed items into the library",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "ids", Min: 1, Max: -1},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.FeedDownload,
			},
			{
				Name:  "cancel",
				Usage: "Reset an interrupted download back to not_downloaded",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.FeedCancel,
			},
			{
				Name:  "refresh",
				Usage: "Fetch full metadata for feed items now",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "ids", Min: 1, Max: -1},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.FeedRefresh,
			},
		},
	}
}

// creatorCommand handles creators.
func creatorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "creator",
		Usage: "Manage creators",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a creator",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CreatorAdd,
			},
			{
				Name:  "list",
				Usage: "List creators",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.CreatorList,
			},
		},
	}
}

// credentialCommand handles stored cookie files.
func credentialCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "credential",
		Aliases: []string{"cred"},
		Usage:   "Manage platform credentials (cookie files)",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Store a cookie file reference",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "label",
						Usage:    "Human-readable label",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "platform",
						Usage:    "Platform tag (youtube or patreon)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "cookies",
						Usage:    "Path to the Netscape-format cookie file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "default",
						Usage: "Make this the platform default",
					},
				},
				Action: r.CredentialAdd,
			},
			{
				Name:  "list",
				Usage: "List stored credentials",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.CredentialList,
			},
			{
				Name:  "set-default",
				Usage: "Make a credential the default for its platform",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CredentialSetDefault,
			},
		},
	}
}

// warehouseCommand handles materialized library files.
func warehouseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "warehouse",
		Usage: "Inspect and import library files",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import an existing file into the library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "creator",
						Usage:    "Creator ID the file belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the media file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title (defaults to the file name)",
					},
				},
				Action: r.WarehouseImport,
			},
			{
				Name:  "list",
				Usage: "List library files",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "creator",
						Usage: "Filter by creator ID",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.WarehouseList,
			},
		},
	}
}

// settingsCommand reads and updates stored preferences.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read and update stored settings",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show stored settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SettingsGet,
			},
			{
				Name:  "set",
				Usage: "Update a setting",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "library", Usage: "Library root directory"},
					&cli.IntFlag{Name: "sync-interval", Usage: "Sync interval in seconds"},
					&cli.StringFlag{Name: "notifications", Usage: "Enable notifications (on/off)"},
				},
				Action: r.SettingsSet,
			},
		},
	}
}
