package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/pydist/index"
	"github.com/pesap/reVX/pkg/pydist/setupcfg"
	"github.com/pesap/reVX/pkg/release"
)

func init() {
	var (
		argConfig string
		argTag    string
	)
	cmd := &cobra.Command{
		Use:   "check [flags]",
		Short: "Validate the project metadata without building",
		Long: "Check runs the provision step on its own: the version must parse, the\n" +
			"project must declare support for the pinned interpreter, a --tag (if\n" +
			"given) must name the project version, and the index must not already\n" +
			"have this version.",
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
			if argTag != "" {
				runner.Event = release.EventRelease
				runner.Tag = argTag
			}
			ctx := flags.Context()
			if err := runner.Provision(ctx); err != nil {
				return err
			}

			md, err := setupcfg.Load(cfg.Dir)
			if err != nil {
				return err
			}
			client := index.Client{BaseURL: cfg.Index.BaseURL}
			has, err := client.HasVersion(ctx, md.Name, md.Version)
			if err != nil {
				return err
			}
			if has {
				return fmt.Errorf("index already has %s==%s; bump the version",
					md.Name, md.Version)
			}
			fmt.Fprintf(flags.OutOrStdout(), "%s %s is ready to publish\n",
				md.Name, md.Version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&argConfig, "config", "c", "", "Pipeline config `FILE` (YAML)")
	cmd.Flags().StringVar(&argTag, "tag", "", "Release `TAG` to validate against the version")

	argparserRelease.AddCommand(cmd)
}
