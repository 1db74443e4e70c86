// Package magictech bootstraps one technology: it owns the
// techfile.Loader and wires pkg/compose, pkg/cif, and pkg/resist's
// clients onto it, the same way a CLI's shared-resource bootstrap
// function builds one manager up front and hands it to every
// subcommand that needs it.
package magictech

import (
	"fmt"

	"github.com/RTimothyEdwards/magic-core/pkg/cif"
	"github.com/RTimothyEdwards/magic-core/pkg/compose"
	"github.com/RTimothyEdwards/magic-core/pkg/elog"
	"github.com/RTimothyEdwards/magic-core/pkg/resist"
	"github.com/RTimothyEdwards/magic-core/pkg/techfile"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Tech bundles one technology's loaded state: the type-composition
// table, the output (cif) and input (cifinput) CIF styles, and the
// resistance extractor, all sharing the same type-name universe.
type Tech struct {
	Loader  *techfile.Loader
	Names   *compose.Names
	Compose *compose.Table
	CIF     *cif.Style
	CIFIn   *cif.Style
	Extract *Extractor
}

// Extractor pairs pkg/resist's extractor with the residue table it
// needs from pkg/compose, set once both sections have loaded.
type Extractor = resist.Extractor

// Load builds a fresh Tech by reading path through a new Loader,
// registering every package's client before the first Load call so
// prerequisite/order bookkeeping sees the whole client set.
func Load(log elog.View, path string, searchPath []string) (*Tech, error) {
	t := &Tech{
		Names:   compose.NewNames(),
		Compose: compose.NewTable(),
		CIF:     cif.NewStyle("cif"),
		CIFIn:   cif.NewStyle("cifinput"),
		Extract: &resist.Extractor{Log: log},
	}
	t.Loader = techfile.NewLoader(log)
	t.Loader.SearchPath = searchPath

	typesID, err := compose.RegisterTechClient(t.Loader, t.Compose, t.Names, 0)
	if err != nil {
		return nil, fmt.Errorf("magictech: registering compose client: %w", err)
	}
	composeMask := techfile.SectionMask(1) << uint(typesID)
	if err := cif.RegisterTechClient(t.Loader, "cif", t.CIF, t.Names, composeMask); err != nil {
		return nil, fmt.Errorf("magictech: registering cif client: %w", err)
	}
	if err := cif.RegisterTechClient(t.Loader, "cifinput", t.CIFIn, t.Names, composeMask); err != nil {
		return nil, fmt.Errorf("magictech: registering cifinput client: %w", err)
	}
	if err := resist.RegisterTechClient(t.Loader, t.Extract, t.Names.Resolve, composeMask); err != nil {
		return nil, fmt.Errorf("magictech: registering resistclasses client: %w", err)
	}
	t.Extract.Residues = t.Compose

	if err := t.Loader.Load(path, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// ResolveLayerXRef adapts t.CIFIn into a gds.LayerXRef, the production
// cross-reference `magic gds read` uses.
type ResolveLayerXRef struct{ Style *cif.Style }

// ResolveLayer implements gds.LayerXRef.
func (x ResolveLayerXRef) ResolveLayer(layer, datatype int16) (tile.TileType, bool) {
	for _, l := range x.Style.Layers {
		if int16(l.GDSLayer) == layer && int16(l.GDSDatatype) == datatype {
			return l.MaskType, true
		}
	}
	return 0, false
}
