package main

import (
	"github.com/spf13/cobra"

	"github.com/pesap/reVX/pkg/cliutil"
	"github.com/pesap/reVX/pkg/layer"
)

func init() {
	var argPrefix string
	cmd := &cobra.Command{
		Use:   "image [flags] IN_DISTDIR >OUT_IMAGEFILE",
		Short: "Package a dist/ directory as an OCI image",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			l, err := layer.FromDir(args[0], argPrefix)
			if err != nil {
				return err
			}
			img, err := layer.Image(l)
			if err != nil {
				return err
			}
			return layer.Write(flags.OutOrStdout(), img)
		},
	}
	cmd.Flags().StringVar(&argPrefix, "prefix", "dist",
		"Place the artifacts under `DIR` inside the image")

	argparserRelease.AddCommand(cmd)
}
