package gds

import (
	"github.com/RTimothyEdwards/magic-core/pkg/cif"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// StyleXRef implements LayerXRef over a loaded CIF style's Calma
// (layer,datatype) cross-reference. cmd/magic resolves layers through
// magictech.ResolveLayerXRef instead; nothing in this module constructs
// a StyleXRef.
type StyleXRef struct {
	style *cif.Style
	byKey map[[2]int16]tile.TileType
}

// NewStyleXRef indexes style's layers by (GDSLayer, GDSDatatype) for
// O(1) lookup during a read.
func NewStyleXRef(style *cif.Style) *StyleXRef {
	x := &StyleXRef{style: style, byKey: make(map[[2]int16]tile.TileType)}
	for _, l := range style.Layers {
		if l.GDSLayer < 0 {
			continue
		}
		x.byKey[[2]int16{int16(l.GDSLayer), int16(l.GDSDatatype)}] = l.MaskType
	}
	return x
}

// ResolveLayer implements LayerXRef.
func (x *StyleXRef) ResolveLayer(layer, datatype int16) (tile.TileType, bool) {
	t, ok := x.byKey[[2]int16{layer, datatype}]
	return t, ok
}
