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

func draftFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "draft",
		Aliases: []string{"d"},
		Usage:   "Draft number or id (default: most recently edited)",
	}
}

// selectionFlags choose which tracks a payout edit applies to. Positions are 1-based.
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		draftFlag(),
		&cli.StringFlag{
			Name:    "tracks",
			Aliases: []string{"t"},
			Usage:   "Comma separated track positions to select, e.g. 1,3,4",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Select every track",
		},
		&cli.BoolFlag{
			Name:  "none",
			Usage: "Clear the selection",
		},
	}
}

func detailFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Album title"},
		&cli.IntFlag{Name: "year", Usage: "Release year"},
		&cli.StringFlag{Name: "label", Usage: "Record label"},
		&cli.BoolFlag{Name: "explicit", Usage: "Album contains explicit content"},
		&cli.StringFlag{Name: "artist", Usage: "Artist display name, used when your profile has none"},
		&cli.StringFlag{Name: "cover", Usage: "Path to the cover image"},
	}
}

func minFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "min",
		Usage: "Platform minimum stream threshold (default: fetched from the backend)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func songArgument() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "song", UsageText: "song id"}}
}

// setupCommand handles setup operations for the draft database and backend connection.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the draft database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:    "backend",
				Aliases: []string{"be"},
				Usage:   "Configure the backend URL and anon key from a request copied out of the browser",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupBackend,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{
			Name:    "email",
			Aliases: []string{"e"},
			Usage:   "Account email",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password",
			Sources: cli.EnvVars("ENCORE_PASSWORD"),
		},
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password, or with --provider through the browser",
				Flags: append(credentials,
					&cli.StringFlag{
						Name:  "provider",
						Usage: "OAuth provider, e.g. google or github",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser sign-in",
						Value: 5 * time.Minute,
					},
				),
				Action: r.AuthLogin,
			},
			{
				Name:   "signup",
				Usage:  "Create an account",
				Flags:  credentials,
				Action: r.AuthSignup,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and session expiry",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and remove the stored session",
				Action: r.AuthLogout,
			},
		},
	}
}

// draftCommand manages pending albums stored locally until upload.
func draftCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "draft",
		Aliases: []string{"d"},
		Usage:   "Prepare an album locally",
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Start a draft, optionally with audio files",
				ArgsUsage: "[files...]",
				Flags:     detailFlags(),
				Action:    r.DraftNew,
			},
			{
				Name:      "add",
				Usage:     "Add audio files as tracks",
				ArgsUsage: "<files...>",
				Flags: []cli.Flag{
					draftFlag(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Track name when adding a single file (default: file name)",
					},
				},
				Action: r.DraftAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove tracks by position",
				ArgsUsage: "<positions...>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.DraftRemove,
			},
			{
				Name:      "move",
				Aliases:   []string{"mv"},
				Usage:     "Move a track to another position",
				ArgsUsage: "<from> <to>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.DraftMove,
			},
			{
				Name:      "rename",
				Usage:     "Rename a track",
				ArgsUsage: "<position> <name>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.DraftRename,
			},
			{
				Name:      "select",
				Usage:     "Choose the tracks payout edits apply to",
				ArgsUsage: "[positions...]",
				Flags:     selectionFlags(),
				Action:    r.DraftSelect,
			},
			{
				Name:   "details",
				Usage:  "Set album title, year, label, cover and artist name",
				Flags:  append([]cli.Flag{draftFlag()}, detailFlags()...),
				Action: r.DraftDetails,
			},
			{
				Name:   "show",
				Usage:  "Show a draft and its tracks",
				Flags:  []cli.Flag{draftFlag(), jsonFlag()},
				Action: r.DraftShow,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List saved drafts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "editing",
						Usage: "Only drafts that edit a published album (--editing=false for new albums)",
					},
				},
				Action: r.DraftList,
			},
			{
				Name:   "discard",
				Usage:  "Delete a draft",
				Flags:  []cli.Flag{draftFlag()},
				Action: r.DraftDiscard,
			},
			{
				Name:  "export",
				Usage: "Write a draft summary as text, markdown or CSV",
				Flags: []cli.Flag{
					draftFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (text, markdown, csv)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path without extension",
					},
				},
				Action: r.DraftExport,
			},
		},
	}
}

// payoutCommand edits payout settings of the selected tracks.
func payoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "payout",
		Aliases: []string{"pay"},
		Usage:   "Configure how tracks pay artists and listeners",
		Commands: []*cli.Command{
			{
				Name:      "threshold",
				Usage:     "Streams before a track pays out; raised to the platform minimum",
				ArgsUsage: "[--] <streams> [positions...]",
				Description: "Negative values look like flags, so pass them after --:\n" +
					"  encore payout threshold --all -- -5",
				Flags:  append(selectionFlags(), minFlag()),
				Action: r.PayoutThreshold,
			},
			{
				Name:      "percentage",
				Aliases:   []string{"pct"},
				Usage:     "Artist share from 0 to 100; listeners receive the rest",
				ArgsUsage: "[--] <percent> [positions...]",
				Description: "Negative values look like flags, so pass them after --:\n" +
					"  encore payout percentage --all -- -10",
				Flags:  selectionFlags(),
				Action: r.PayoutPercentage,
			},
			{
				Name:      "free",
				Usage:     "Make tracks free to stream",
				ArgsUsage: "[positions...]",
				Flags:     selectionFlags(),
				Action:    r.PayoutFree,
			},
			{
				Name:      "paid",
				Usage:     "Make tracks paid",
				ArgsUsage: "[positions...]",
				Flags:     selectionFlags(),
				Action:    r.PayoutPaid,
			},
			{
				Name:      "mode",
				Usage:     "Set the payout mode (proportional or jackpot)",
				ArgsUsage: "<mode> [positions...]",
				Flags:     selectionFlags(),
				Action:    r.PayoutMode,
			},
		},
	}
}

// tagsCommand edits draft tags and browses platform tags.
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Tag a draft by genre, mood, instrument or miscellaneous",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a tag to a category",
				ArgsUsage: "<category> <name>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.TagsAdd,
			},
			{
				Name:      "rename",
				Usage:     "Rename a tag",
				ArgsUsage: "<category> <old> <new>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.TagsRename,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a tag from a category",
				ArgsUsage: "<category> <name>",
				Flags:     []cli.Flag{draftFlag()},
				Action:    r.TagsDelete,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the draft's tags",
				Flags:   []cli.Flag{draftFlag()},
				Action:  r.TagsList,
			},
			{
				Name:   "explore",
				Usage:  "List every platform tag by category",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.TagsExplore,
			},
			{
				Name:      "search",
				Usage:     "Search platform tags by name",
				ArgsUsage: "<term>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tags to return",
						Value: 20,
					},
				},
				Action: r.TagsSearch,
			},
		},
	}
}

// uploadCommand publishes a draft.
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Publish a draft: cover, album, tags, tracks and links",
		Flags: []cli.Flag{
			draftFlag(),
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "Keep the draft after a successful upload",
			},
		},
		Action: r.Upload,
	}
}

// uploadsCommand manages the local upload history.
func uploadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "uploads",
		Usage: "Upload history",
		Commands: []*cli.Command{
			{
				Name:    "history",
				Aliases: []string{"list", "ls"},
				Usage:   "List recent upload attempts",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of uploads to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (running, completed, failed)",
					},
					jsonFlag(),
				},
				Action: r.UploadsHistory,
			},
			{
				Name:      "clear",
				Usage:     "Remove an upload from the history",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id", UsageText: "upload id"}},
				Action:    r.UploadsClear,
			},
		},
	}
}

// albumCommand manages published albums.
func albumCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id", UsageText: "album id"}}

	return &cli.Command{
		Name:  "album",
		Usage: "Published albums",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List your published albums",
				Flags:   []cli.Flag{jsonFlag()},
				Action:  r.AlbumList,
			},
			{
				Name:      "edit",
				Usage:     "Load a published album into a new draft",
				Arguments: idArg,
				Action:    r.AlbumEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete a published album with its songs and files",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip confirmation",
					},
				},
				Action: r.AlbumDelete,
			},
			{
				Name:      "export",
				Usage:     "Export published albums to text, markdown or CSV",
				ArgsUsage: "[album ids...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (text, markdown, csv)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: exports_<timestamp>)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent album fetches (max 10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Album fetches per second",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images",
					},
				},
				Action: r.AlbumExport,
			},
		},
	}
}

// fnCommand calls the backend's serverless functions.
func fnCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "fn",
		Aliases: []string{"functions"},
		Usage:   "Wallets, payouts, plays and tokens",
		Commands: []*cli.Command{
			{
				Name:   "wallet",
				Usage:  "Create your payout wallet",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.FnWallet,
			},
			{
				Name:      "payout",
				Usage:     "Pay out a song that reached its stream threshold",
				Arguments: songArgument(),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.FnPayout,
			},
			{
				Name:      "play",
				Usage:     "Record a stream of a song",
				Arguments: songArgument(),
				Action:    r.FnPlay,
			},
			{
				Name:  "tokens",
				Usage: "Buy listener tokens",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "amount",
						Aliases:  []string{"n"},
						Usage:    "Number of tokens",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the checkout page in the browser",
					},
				},
				Action: r.FnTokens,
			},
			{
				Name:  "delete-account",
				Usage: "Delete your account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm deletion",
					},
				},
				Action: r.FnDeleteAccount,
			},
		},
	}
}

// listenCommand performs listener actions.
func listenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Listener likes, library and streams",
		Commands: []*cli.Command{
			{
				Name:      "like",
				Usage:     "Like a song",
				Arguments: songArgument(),
				Action:    r.ListenLike,
			},
			{
				Name:      "unlike",
				Usage:     "Remove a like",
				Arguments: songArgument(),
				Action:    r.ListenUnlike,
			},
			{
				Name:      "save",
				Usage:     "Add a song to your library",
				Arguments: songArgument(),
				Action:    r.ListenSave,
			},
			{
				Name:      "forget",
				Usage:     "Remove a song from your library",
				Arguments: songArgument(),
				Action:    r.ListenForget,
			},
			{
				Name:  "library",
				Usage: "List your library",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "liked",
						Usage: "List liked songs instead",
					},
					jsonFlag(),
				},
				Action: r.ListenLibrary,
			},
			{
				Name:  "streams",
				Usage: "Show your stream counts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "song",
						Usage: "Show the total for one song",
					},
					jsonFlag(),
				},
				Action: r.ListenStreams,
			},
		},
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	pathArg := []cli.Argument{&cli.StringArg{Name: "path", UsageText: "path such as /rest/v1/albums?select=*"}}
	dataFlag := &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "JSON body to send",
		Required: true,
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the backend REST API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the JSON response",
				Arguments: pathArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "compact",
						Usage: "Print JSON on one line",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: pathArg,
				Flags:     []cli.Flag{dataFlag},
				Action:    r.APIPost,
			},
			{
				Name:      "patch",
				Usage:     "Direct PATCH with JSON body",
				Arguments: pathArg,
				Flags:     []cli.Flag{dataFlag},
				Action:    r.APIPatch,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: pathArg,
				Action:    r.APIDelete,
			},
			{
				Name:  "dump",
				Usage: "Dump your artist profile, albums, songs and the platform tags",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also write the dump to this file",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive payout editing and upload.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Edit payouts and upload a draft interactively",
		Flags: []cli.Flag{
			draftFlag(),
			minFlag(),
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file while the TUI is running",
				Value: "./tmp/encore-tui.log",
			},
		},
		Action: r.TUI,
	}
}
