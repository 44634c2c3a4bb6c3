package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
)

var argparserRelease = &cobra.Command{
	Use:   "release {[flags]|SUBCOMMAND...}",
	Short: "Build and publish the Python distributions",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,
}

func init() {
	argparser.AddCommand(argparserRelease)
}
