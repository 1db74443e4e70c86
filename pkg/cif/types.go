// Package cif implements the CIF layer/operator engine: a configurable
// geometric algebra pipeline that translates between internal mask
// layer types and fabrication (CIF/GDS) layers.
package cif

import "github.com/RTimothyEdwards/magic-core/pkg/tile"

// Opcode identifies a CIF operator.
type Opcode int

const (
	OpOR Opcode = iota
	OpAND
	OpANDNOT
	OpGROW
	OpGROWGrid // _G variant: evaluated exactly like OpGROW, with no grid snapping
	OpSHRINK
	OpBloatOR
	OpBloatMin
	OpBloatMax
	OpBloatAll
	OpSquares
	OpSquaresGrid
	OpSlots
	OpBBox
	OpMaxRectExt
	OpMaxRectInt
	OpNet
)

// String names an opcode for diagnostics.
func (o Opcode) String() string {
	switch o {
	case OpOR:
		return "OR"
	case OpAND:
		return "AND"
	case OpANDNOT:
		return "AND-NOT"
	case OpGROW:
		return "GROW"
	case OpGROWGrid:
		return "GROW_G"
	case OpSHRINK:
		return "SHRINK"
	case OpBloatOR:
		return "BLOAT-OR"
	case OpBloatMin:
		return "BLOAT-MIN"
	case OpBloatMax:
		return "BLOAT-MAX"
	case OpBloatAll:
		return "BLOAT-ALL"
	case OpSquares:
		return "SQUARES"
	case OpSquaresGrid:
		return "SQUARES_G"
	case OpSlots:
		return "SLOTS"
	case OpBBox:
		return "BBOX"
	case OpMaxRectExt:
		return "MAXRECT"
	case OpMaxRectInt:
		return "MAXRECT-INT"
	case OpNet:
		return "NET"
	default:
		return "?"
	}
}

// BloatEntry is one per-type distance in a BLOAT-* operator's
// parameter list: "when the type across this edge is Type, move the
// edge by Distance".
type BloatEntry struct {
	Type     tile.TileType
	Distance int64
}

// SquaresParams configures SQUARES/SQUARES_G.
type SquaresParams struct {
	Border   int64
	Size     int64
	Sep      int64
	GridX    int64 // 0 means "use Size+Sep"
	GridY    int64
}

// SlotsParams configures SLOTS.
type SlotsParams struct {
	ShortBorder, ShortSize, ShortSep int64
	LongBorder, LongSize, LongSep   int64
	Offset                          int64
}

// CIFOp is one tagged operator record in a layer's operator list.
type CIFOp struct {
	Op Opcode

	// Operands name either a previously declared CIF layer (a
	// "templayer") or a mask TileType, resolved against the Source
	// passed to Evaluate.
	Operands []string

	Distance int64
	Bloat    []BloatEntry
	Squares  SquaresParams
	Slots    SlotsParams

	// Top restricts BBOX to only apply at the top level of a CIF
	// hierarchy walk ("BBOX top").
	Top bool

	// NetLabel names the label NET should flood from.
	NetLabel string
}

// LayerFlag bits for a CIFLayer.
type LayerFlag uint32

const (
	// LayerTemp marks a layer as intermediate: it participates in
	// later operators' operand resolution but is never emitted.
	LayerTemp LayerFlag = 1 << iota
)

// CIFLayer is one named derived layer: its GDS identity, label
// mapping, 3D process parameters, and ordered operator list.
type CIFLayer struct {
	Name        string
	Flags       LayerFlag
	GDSLayer    int
	GDSDatatype int
	LabelLayer  tile.TileType
	// MaskType is the internal mask TileType this layer reads in as,
	// when the style is used as a cifinput (GDS-ingest) cross-reference
	// rather than an output-generating style. pkg/gds.StyleXRef uses it.
	MaskType  tile.TileType
	Height    int64
	Thickness int64
	MinWidth  int64
	Ops       []CIFOp
}

// IsTemp reports whether the layer is intermediate-only.
func (l *CIFLayer) IsTemp() bool { return l.Flags&LayerTemp != 0 }

// StyleStatus tracks a style's load lifecycle.
type StyleStatus int

const (
	NotLoaded StyleStatus = iota
	Pending
	Suspended
	Loaded
)

// StyleFlag bits for a Style.
type StyleFlag uint32

const (
	// FlagCalma marks a style as using Calma/GDS-II stream
	// conventions for its layer cross-reference.
	FlagCalma StyleFlag = 1 << iota
)

// Style is a complete CIF configuration: scale, grid limit, label
// mapping, layer list, and plane order.
type Style struct {
	Name   string
	Status StyleStatus
	Flags  StyleFlag

	// ScaleNum is centimicrons per internal unit; Expander is the
	// denominator (often 10 for nm resolution); Reducer is stored from
	// the `reducer` directive but no evaluation step reads it. GridLimit forbids producing geometry
	// finer than this many tech units.
	ScaleNum  int64
	Expander  int64
	Reducer   int64
	GridLimit int64

	LabelLayerMap map[tile.TileType]tile.TileType
	Layers        []*CIFLayer
	PlaneOrder    []tile.Plane

	byName map[string]*CIFLayer
}

// NewStyle creates an empty, NotLoaded style with the identity scale.
func NewStyle(name string) *Style {
	return &Style{
		Name:          name,
		Status:        NotLoaded,
		ScaleNum:      1,
		Expander:      1,
		Reducer:       1,
		LabelLayerMap: make(map[tile.TileType]tile.TileType),
		byName:        make(map[string]*CIFLayer),
	}
}

// AddLayer appends a layer definition, indexing it by name for operand
// resolution by later layers.
func (s *Style) AddLayer(l *CIFLayer) {
	s.Layers = append(s.Layers, l)
	if s.byName == nil {
		s.byName = make(map[string]*CIFLayer)
	}
	s.byName[l.Name] = l
}

// Layer looks up a declared layer by name.
func (s *Style) Layer(name string) (*CIFLayer, bool) {
	l, ok := s.byName[name]
	return l, ok
}

// IndexOf returns the declaration-order index of a layer, or -1.
func (s *Style) IndexOf(name string) int {
	for i, l := range s.Layers {
		if l.Name == name {
			return i
		}
	}
	return -1
}
