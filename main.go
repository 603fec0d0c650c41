package main

import (
	"os"

	"github.com/rget-dev/rget/cmd"
	"github.com/rget-dev/rget/pkg/logging"
)

func main() {
	logging.SetupLogger()
	rootCMD := cmd.GetRootCommand()
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}
