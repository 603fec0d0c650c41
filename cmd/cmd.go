package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rget-dev/rget/cmd/root"
	"github.com/rget-dev/rget/cmd/version"
)

func GetRootCommand() *cobra.Command {
	rootCMD := root.GetCommand()
	rootCMD.AddCommand(version.VersionCMD)
	return rootCMD
}
