package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/spaghettifunk/vengine/engine"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/testbed"
)

// Run opens the window and renders the testbed scene until the window is
// closed, Escape is pressed or the process is signalled.
func Run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	e := engine.New(testbed.NewTestGame().Game, &engine.ApplicationConfig{
		Config:     cfg,
		ConfigPath: ctx.GlobalString("config"),
		Validation: ctx.Bool("validation"),
	})
	core.Check(e.Initialize(), "engine initialization failed")

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			core.LogInfo("signal received, stopping...")
			e.Stop()
		}
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	return runErr
}
