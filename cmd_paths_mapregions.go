package main

import (
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/geo"
)

func init() {
	var (
		argOut    string
		argColumn string
	)
	cmd := &cobra.Command{
		Use:   "map-regions [flags] IN_SUBSTATIONS IN_REGIONS",
		Short: "Assign substations to reinforcement regions",
		Long: "Map-regions tags every substation point with the identifier of the\n" +
			"region polygon containing it; substations outside all regions are\n" +
			"dropped.  Both inputs are GeoJSON FeatureCollections.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
		RunE: func(flags *cobra.Command, args []string) error {
			substations, err := geo.LoadFeatures(args[0])
			if err != nil {
				return err
			}
			regions, err := geo.LoadFeatures(args[1])
			if err != nil {
				return err
			}
			mapped, err := geo.AssignRegions(substations, regions, argColumn)
			if err != nil {
				return err
			}
			dlog.Infof(flags.Context(), "mapped %d of %d substations to regions",
				len(mapped), len(substations))
			return geo.SaveFeatures(argOut, mapped)
		},
	}
	cmd.Flags().StringVarP(&argOut, "output", "o", "substations_mapped.geojson",
		"Write the mapped substations to `FILE`")
	cmd.Flags().StringVar(&argColumn, "region-column", "ba_str",
		"Region identifier `PROPERTY` on the region features")

	argparserPaths.AddCommand(cmd)
}
