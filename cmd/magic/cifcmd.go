package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RTimothyEdwards/magic-core/pkg/cif"
	"github.com/RTimothyEdwards/magic-core/pkg/gds"
	"github.com/RTimothyEdwards/magic-core/pkg/magictech"
)

var (
	flagCIFTech string
	flagCIFCell string
)

var cifEvalCmd = &cobra.Command{
	Use:   "eval FILE",
	Short: "Evaluate a CIF output style against a cell read from a GDS-II stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagCIFTech == "" || flagCIFCell == "" {
			return fmt.Errorf("cif eval: --tech and --cell are required")
		}
		t, err := magictech.Load(log, flagCIFTech, homeSearchPath())
		if err != nil {
			return fmt.Errorf("cif eval: %w", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cif eval: %w", err)
		}
		defer f.Close()

		lib, err := gds.Read(f, gds.Options{
			XRef:     magictech.ResolveLayerXRef{Style: t.CIFIn},
			Composer: t.Compose,
			Log:      log,
		})
		if err != nil {
			return fmt.Errorf("cif eval: %w", err)
		}

		def, ok := lib.Registry().FindDef(flagCIFCell)
		if !ok {
			return fmt.Errorf("cif eval: cell %q not found in %q", flagCIFCell, args[0])
		}

		src := &cif.CellDefSource{Def: def, Names: t.Names}
		results, err := cif.Evaluate(t.CIF, src, true)
		if err != nil {
			return fmt.Errorf("cif eval: %w", err)
		}
		for _, r := range results {
			fmt.Printf("%s (gds %d/%d): %d rects\n", r.Layer.Name, r.Layer.GDSLayer, r.Layer.GDSDatatype, len(r.Rects))
		}
		return nil
	},
}

func init() {
	cifEvalCmd.Flags().StringVar(&flagCIFTech, "tech", "", "technology file defining the `cif` style")
	cifEvalCmd.Flags().StringVar(&flagCIFCell, "cell", "", "name of the cell (as painted by gds read) to evaluate")
}
