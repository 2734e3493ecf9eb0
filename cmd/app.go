package cmd

import (
	"github.com/urfave/cli"
)

// NewApp describes the vengine command line.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vengine"
	app.Usage = "render a scene with Vulkan NV ray tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Value: "engine.toml",
			Usage: "TOML config file, reloaded while running",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "open a window and render the testbed scene",
			Description: `
Load the config, open a window, build the bottom and top level acceleration
structures for the testbed scene and trace one frame per vsync. W/A/S/D and
the arrow keys move the camera, Escape quits.`,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "validation",
					Usage: "enable the Khronos validation layer",
				},
			},
			Action: Run,
		},
		{
			Name:    "devices",
			Aliases: []string{"list-devices"},
			Usage:   "list Vulkan devices and their ray tracing support",
			Action:  ListDevices,
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration",
			Action: PrintConfig,
		},
	}
	return app
}
