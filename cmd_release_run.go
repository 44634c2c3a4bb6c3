package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/release"
)

func init() {
	var (
		argConfig string
		argEvent  string
		argTag    string
	)
	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Run the whole pipeline: checkout, provision, build, publish",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, _ []string) error {
			event, err := release.ParseEvent(argEvent)
			if err != nil {
				return err
			}
			cfg, err := release.LoadConfig(argConfig)
			if err != nil {
				return err
			}
			runner := &release.Runner{
				Cfg:   cfg,
				Event: event,
				Tag:   argTag,
			}
			return runner.Steps().Run(flags.Context())
		},
	}
	cmd.Flags().StringVarP(&argConfig, "config", "c", "", "Pipeline config `FILE` (YAML)")
	cmd.Flags().StringVar(&argEvent, "event", string(release.EventDispatch),
		"What triggered the run: \"release\" or \"dispatch\"")
	cmd.Flags().StringVar(&argTag, "tag", "", "Release `TAG`; required with --event=release")

	argparserRelease.AddCommand(cmd)
}
