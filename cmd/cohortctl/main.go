package main

import (
	"os"

	"github.com/dalemusser/cohorthub/internal/app/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
