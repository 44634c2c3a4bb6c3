package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/lcp"
)

func init() {
	var argConfig string
	cmd := &cobra.Command{
		Use:   "from-config [flags]",
		Short: "Run a least-cost paths job from a JSON config",
		Long: "From-config routes every feature pair over the configured cost layers\n" +
			"and writes least_cost_paths.csv (plus .geojson with save_paths) to the\n" +
			"config's out_dir.  A config with network_nodes runs in reinforcement\n" +
			"mode instead, routing each substation to its region's network node.",
		Args: cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, _ []string) error {
			cfg, err := lcp.LoadConfig(argConfig)
			if err != nil {
				return err
			}
			return lcp.FromConfig(flags.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&argConfig, "config", "c", "", "Job config `FILE` (JSON)")
	_ = cmd.MarkFlagRequired("config")

	argparserPaths.AddCommand(cmd)
}
