// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/gerak/internal/formatter"
	"github.com/urfave/cli/v3"
)

// tuiCommand returns the top-level TUI command for an interactive coaching session.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive coaching session in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "preview",
				Usage: "Also serve the web preview on this address (e.g. 127.0.0.1:3000)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file (defaults to log.file from the config)",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand runs the headless web shell.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the coaching session as a web page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port from the config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// analyzeCommand sends a single image to the model.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze one image for a movement and print the report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "movement",
				Aliases:  []string{"m"},
				Usage:    "Movement ID (see 'gerak movements')",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"i"},
				Usage:    "Path to a JPEG or PNG image",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: " + strings.Join(formatter.Formats, ", "),
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "overlay",
				Usage: "Write the image with the skeleton overlay to this PNG file",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write a Markdown export (README.md + overlay.png) to this directory",
			},
			&cli.BoolFlag{
				Name:  "reference",
				Usage: "Download the movement's demonstration image into the export directory",
			},
		},
		Action: r.Analyze,
	}
}

// movementsCommand lists the movement catalog.
func movementsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movements",
		Aliases: []string{"ls"},
		Usage:   "List the movements available for coaching",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Movements,
	}
}

// setupCommand writes a config file from the embedded template.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the default template",
		Action: r.Setup,
	}
}

// checkCommand verifies the model credentials and, optionally, the camera.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check the API key, the model and the camera",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "camera",
				Usage: "Also open the camera and grab one frame",
			},
		},
		Action: r.Check,
	}
}
