package cmd

import (
	"github.com/urfave/cli"
)

// PrintConfig writes the effective configuration as TOML.
func PrintConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfg.Encode(ctx.App.Writer)
}
