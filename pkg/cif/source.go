package cif

import (
	"github.com/RTimothyEdwards/magic-core/pkg/compose"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// CellDefSource adapts a painted tile.CellDef into a cif.Source, the
// production path that sits between a GDS-read/tile-painted cell and
// Evaluate: the same cell that pkg/gds paints into is handed back here
// to generate CIF/GDS output layers from it.
type CellDefSource struct {
	Def   *tile.CellDef
	Names *compose.Names
}

// TypeRects implements Source by scanning every plane for tiles of typ.
func (s *CellDefSource) TypeRects(typ tile.TileType) []tile.Rect {
	var out []tile.Rect
	for _, p := range s.Def.Planes {
		if p == nil {
			continue
		}
		for _, t := range p.Tiles() {
			if t.Type == typ {
				out = append(out, t.Rect)
			}
		}
	}
	return out
}

// ResolveTypeName implements Source against the shared type-name table
// a technology file's `types` section populates.
func (s *CellDefSource) ResolveTypeName(name string) (tile.TileType, bool) {
	if s.Names == nil {
		return 0, false
	}
	return s.Names.Resolve(name)
}

// LabelPoint implements Source by finding the first label with this
// text anywhere on the cell.
func (s *CellDefSource) LabelPoint(name string) (x, y int64, ok bool) {
	for _, lbl := range s.Def.Labels {
		if lbl.Text == name {
			return lbl.Rect.XLo, lbl.Rect.YLo, true
		}
	}
	return 0, 0, false
}

// Bound implements Source.
func (s *CellDefSource) Bound() tile.Rect { return s.Def.BBox }
