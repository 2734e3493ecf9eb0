package main

import (
	"os"

	"github.com/spaghettifunk/vengine/cmd"
	"github.com/spaghettifunk/vengine/engine/core"
)

func main() {
	core.Check(cmd.NewApp().Run(os.Args), "vengine")
}
