package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RTimothyEdwards/magic-core/pkg/gds"
	"github.com/RTimothyEdwards/magic-core/pkg/magictech"
)

var flagGDSTech string

var gdsReadCmd = &cobra.Command{
	Use:   "read FILE",
	Short: "Read a GDS-II stream and report the cells it defines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagGDSTech == "" {
			return fmt.Errorf("gds read: --tech is required")
		}
		t, err := magictech.Load(log, flagGDSTech, homeSearchPath())
		if err != nil {
			return fmt.Errorf("gds read: %w", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("gds read: %w", err)
		}
		defer f.Close()

		lib, err := gds.Read(f, gds.Options{
			XRef:     magictech.ResolveLayerXRef{Style: t.CIFIn},
			Composer: t.Compose,
			Log:      log,
		})
		if err != nil {
			return fmt.Errorf("gds read: %w", err)
		}

		fmt.Printf("library %q (scale %d/%d), %d cells, %d errors\n",
			lib.Name, lib.ScaleNum, lib.ScaleDen, len(lib.Registry().All()), lib.ErrorCount())
		for _, def := range lib.Registry().All() {
			fmt.Printf("  %s bbox=%v\n", def.Name, def.BBox)
		}
		return nil
	},
}

func init() {
	gdsReadCmd.Flags().StringVar(&flagGDSTech, "tech", "", "technology file to read layer cross-references from")
}
