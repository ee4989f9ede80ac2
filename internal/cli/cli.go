// Package cli provides the gamesync command-line interface: installing the
// managed runtime, syncing game assets, probing mirrors, batch downloads and
// the install history.
package cli

import (
	"time"

	"github.com/urfave/cli/v2"
)

const defaultConfigFile = "gamesync.yaml"

// NewApp creates and configures the main CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:     "gamesync",
		Usage:    "Install the game runtime and keep game assets in sync",
		Version:  "1.0.0",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigFile,
				Usage:   "path to the configuration file",
				EnvVars: []string{"GAMESYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level for structured JSON logs on stderr (debug, info, warn, error)",
				EnvVars: []string{"GAMESYNC_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "install-path",
				Usage:   "game install directory (overrides config.install_path)",
				EnvVars: []string{"GAMESYNC_INSTALL_PATH"},
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "write download metrics in prometheus text format to this file",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "text",
				Usage:   "output format (text, json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "runtime",
				Aliases: []string{"ensure-runtime"},
				Usage:   "Install the Java runtime if needed and print its executable path",
				Flags:   runtimeFlags(),
				Action:  runtimeCommand,
			},
			{
				Name:    "assets",
				Aliases: []string{"sync-assets"},
				Usage:   "Delete stale game files and download missing ones from the asset manifest",
				Flags:   assetFlags(),
				Action:  assetsCommand,
			},
			{
				Name:   "sync",
				Usage:  "Install the runtime, then sync assets",
				Flags:  append(runtimeFlags(), assetFlags()...),
				Action: syncCommand,
			},
			{
				Name:      "probe",
				Usage:     "Check which mirror serves a file, or whether a URL is reachable",
				ArgsUsage: "<relative-path|url>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "mirror",
						Aliases: []string{"m"},
						Usage:   "mirror base URL, tried in order (defaults to assets.mirrors)",
					},
				},
				Action: probeCommand,
			},
			{
				Name:      "fetch",
				Usage:     "Download URLs concurrently into a directory",
				ArgsUsage: "<url>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Value: ".",
						Usage: "output directory",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "number of concurrent downloads (defaults to config.concurrency)",
					},
				},
				Action: fetchCommand,
			},
			{
				Name:  "history",
				Usage: "List recorded runtime installs and asset sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "maximum number of sync runs to list",
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "show the details of one sync run",
					},
				},
				Action: historyCommand,
			},
			{
				Name:  "cycles",
				Usage: "List runtime release cycles with their LTS and end-of-life status",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "major",
						Usage: "show only this major version",
					},
				},
				Action: cyclesCommand,
			},
			{
				Name:  "init",
				Usage: "Write the default configuration to the --config path",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing configuration file",
					},
					&cli.StringFlag{
						Name:  "manifest-url",
						Usage: "asset manifest URL to store in assets.manifest_url",
					},
				},
				Action: initCommand,
			},
		},
	}
}

func runtimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "image-type",
			Usage: "runtime image type (jdk, jre)",
		},
		&cli.StringFlag{
			Name:  "version",
			Usage: "runtime major version (e.g. 17, 17.0.8, lts)",
		},
		&cli.StringFlag{
			Name:    "platform",
			Aliases: []string{"p"},
			Usage:   "target platform (e.g. linux-x64, windows-x64, mac-aarch64)",
		},
	}
}

func assetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "manifest-url",
			Usage: "asset manifest URL (overrides assets.manifest_url)",
		},
	}
}
