package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/release"
)

func init() {
	var argConfig string
	cmd := &cobra.Command{
		Use:   "publish [flags]",
		Short: "Upload a previously built dist/ to the index",
		Long: "Publish uploads the distributions already in dist/ without rebuilding\n" +
			"them.  With no REVX_API_TOKEN a short-lived token is minted via trusted\n" +
			"publishing from the job's ambient OIDC credentials.",
		Args: cliutil.WrapPositionalArgs(cobra.NoArgs),
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
			if err := runner.DiscoverArtifacts(); err != nil {
				return err
			}
			return runner.Publish(ctx)
		},
	}
	cmd.Flags().StringVarP(&argConfig, "config", "c", "", "Pipeline config `FILE` (YAML)")

	argparserRelease.AddCommand(cmd)
}
