package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RTimothyEdwards/magic-core/pkg/magictech"
)

var techLoadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Load a technology file and report its sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := magictech.Load(log, args[0], homeSearchPath())
		if err != nil {
			return fmt.Errorf("tech load: %w", err)
		}
		fmt.Printf("loaded %q: %d cif layers, %d cifinput layers\n", args[0], len(t.CIF.Layers), len(t.CIFIn.Layers))
		if problems := t.Compose.Validate(); len(problems) > 0 {
			for _, p := range problems {
				log.Warnf("compose: %s", p)
			}
		}
		return nil
	},
}
