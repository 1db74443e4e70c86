package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RTimothyEdwards/magic-core/pkg/gds"
	"github.com/RTimothyEdwards/magic-core/pkg/magictech"
	"github.com/RTimothyEdwards/magic-core/pkg/resist"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

var (
	flagExtractTech   string
	flagExtractCell   string
	flagExtractPlane  int
	flagExtractName   string
	flagExtractFH     bool
	flagExtractOutput string
)

var extractNetCmd = &cobra.Command{
	Use:   "net FILE X Y",
	Short: "Extract and reduce the resistor network touching (X,Y) on a plane",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagExtractTech == "" || flagExtractCell == "" {
			return fmt.Errorf("extract net: --tech and --cell are required")
		}
		x, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("extract net: bad X %q: %w", args[1], err)
		}
		y, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("extract net: bad Y %q: %w", args[2], err)
		}

		t, err := magictech.Load(log, flagExtractTech, homeSearchPath())
		if err != nil {
			return fmt.Errorf("extract net: %w", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("extract net: %w", err)
		}
		defer f.Close()

		lib, err := gds.Read(f, gds.Options{
			XRef:     magictech.ResolveLayerXRef{Style: t.CIFIn},
			Composer: t.Compose,
			Log:      log,
		})
		if err != nil {
			return fmt.Errorf("extract net: %w", err)
		}

		def, ok := lib.Registry().FindDef(flagExtractCell)
		if !ok {
			return fmt.Errorf("extract net: cell %q not found in %q", flagExtractCell, args[0])
		}

		net, err := t.Extract.ExtractNet(def, tile.Plane(flagExtractPlane), x, y, flagExtractName, nil)
		if err != nil {
			return fmt.Errorf("extract net: %w", err)
		}
		resist.Simplify(net)

		out := os.Stdout
		if flagExtractOutput != "" {
			of, err := os.Create(flagExtractOutput)
			if err != nil {
				return fmt.Errorf("extract net: %w", err)
			}
			defer of.Close()
			out = of
		}

		if flagExtractFH {
			return resist.EmitFastHenry(out, net, nil)
		}
		return resist.EmitText(out, net, 0)
	},
}

func init() {
	extractNetCmd.Flags().StringVar(&flagExtractTech, "tech", "", "technology file defining resistclasses")
	extractNetCmd.Flags().StringVar(&flagExtractCell, "cell", "", "name of the cell (as painted by gds read) to extract from")
	extractNetCmd.Flags().IntVar(&flagExtractPlane, "plane", 0, "starting plane index")
	extractNetCmd.Flags().StringVar(&flagExtractName, "name", "", "external name for the starting node")
	extractNetCmd.Flags().BoolVar(&flagExtractFH, "fasthenry", false, "emit FastHenry geometry instead of the text format")
	extractNetCmd.Flags().StringVar(&flagExtractOutput, "output", "", "output file (default stdout)")
}
