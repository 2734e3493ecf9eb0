package cmd

import (
	"github.com/urfave/cli"

	"github.com/spaghettifunk/vengine/engine/core"
)

// setupLogging applies -v/-vv on top of the configured level. It returns the
// level name so a loaded config can be overridden with it.
func setupLogging(ctx *cli.Context, configured string) string {
	level := configured
	if ctx.GlobalBool("v") {
		level = core.InfoLevel.String()
	}
	if ctx.GlobalBool("vv") {
		level = core.DebugLevel.String()
	}
	if l, err := core.ParseLogLevel(level); err == nil {
		core.SetLogLevel(l)
	}
	return level
}

func loadConfig(ctx *cli.Context) (core.Config, error) {
	cfg, err := core.LoadConfig(ctx.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = setupLogging(ctx, cfg.LogLevel)
	return cfg, nil
}
