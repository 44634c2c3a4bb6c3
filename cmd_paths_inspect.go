package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/raster"
)

func init() {
	cmd := &cobra.Command{
		Use:   "inspect [flags] IN_COSTDB",
		Short: "Show a layer store's profile and layers",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			ctx := flags.Context()
			store, err := raster.Open(ctx, args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			layers, err := store.Layers(ctx)
			if err != nil {
				return err
			}
			profile := store.Profile()
			out, err := yaml.Marshal(map[string]interface{}{
				"profile": map[string]interface{}{
					"width":  profile.Width,
					"height": profile.Height,
					"crs":    profile.CRS,
					"transform": map[string]float64{
						"originX":    profile.Transform.OriginX,
						"originY":    profile.Transform.OriginY,
						"cellWidth":  profile.Transform.CellWidth,
						"cellHeight": profile.Transform.CellHeight,
					},
				},
				"layers": layers,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(flags.OutOrStdout(), string(out))
			return err
		},
	}

	argparserPaths.AddCommand(cmd)
}
