package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
)

var argparserPaths = &cobra.Command{
	Use:   "paths {[flags]|SUBCOMMAND...}",
	Short: "Compute least-cost transmission paths",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,
}

func init() {
	argparser.AddCommand(argparserPaths)
}
