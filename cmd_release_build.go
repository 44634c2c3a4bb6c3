package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/release"
)

func init() {
	var argConfig string
	cmd := &cobra.Command{
		Use:   "build [flags]",
		Short: "Build the sdist and wheel in to dist/",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, _ []string) error {
			cfg, err := release.LoadConfig(argConfig)
			if err != nil {
				return err
			}
			runner := &release.Runner{
				Cfg:   cfg,
				Event: release.EventDispatch,
			}
			ctx := flags.Context()
			if err := runner.Provision(ctx); err != nil {
				return err
			}
			return runner.Build(ctx)
		},
	}
	cmd.Flags().StringVarP(&argConfig, "config", "c", "", "Pipeline config `FILE` (YAML)")

	argparserRelease.AddCommand(cmd)
}
