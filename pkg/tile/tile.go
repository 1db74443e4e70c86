// Package tile implements the corner-stitched planar decomposition that
// backs a cell's mask geometry: every plane is partitioned into maximal
// rectangles ("tiles"), each carrying exactly one TileType, reachable
// from one another through edge-adjacency ("stitch") pointers.
//
// The package implements the search contract assigned to the
// tile-plane database (point location, area search, and the four
// corner-stitch neighbor walks) rather than a byte-for-byte port of a
// particular corner-stitching algorithm; callers (pkg/compose, pkg/cif,
// pkg/gds, pkg/resist) only ever observe tiles through that contract.
package tile

import "fmt"

// TileType is a small integer tag identifying a mask layer, including
// contact and diagonal-split encodings.
type TileType int16

const (
	// Space is the reserved background type: empty of any mask material.
	Space TileType = 0
	// TechDepBase is the first technology-defined TileType; values below
	// it are reserved for built-ins (Space and, in a full corner-stitch
	// implementation, diagonal split markers).
	TechDepBase TileType = 2
)

// MaxTileTypes bounds the size of a TileTypeMask.
const MaxTileTypes = 128

// TileTypeMask is a fixed-capacity bit set over TileType values.
type TileTypeMask [MaxTileTypes / 64]uint64

// Set adds t to the mask.
func (m *TileTypeMask) Set(t TileType) {
	m[t/64] |= 1 << (uint(t) % 64)
}

// Clear removes t from the mask.
func (m *TileTypeMask) Clear(t TileType) {
	m[t/64] &^= 1 << (uint(t) % 64)
}

// Has reports whether t is a member of the mask.
func (m TileTypeMask) Has(t TileType) bool {
	if int(t) < 0 || int(t) >= MaxTileTypes {
		return false
	}
	return m[t/64]&(1<<(uint(t)%64)) != 0
}

// Union returns the bitwise union of m and o.
func (m TileTypeMask) Union(o TileTypeMask) TileTypeMask {
	var r TileTypeMask
	for i := range m {
		r[i] = m[i] | o[i]
	}
	return r
}

// Intersect returns the bitwise intersection of m and o.
func (m TileTypeMask) Intersect(o TileTypeMask) TileTypeMask {
	var r TileTypeMask
	for i := range m {
		r[i] = m[i] & o[i]
	}
	return r
}

// IsZero reports whether the mask has no members.
func (m TileTypeMask) IsZero() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// MaskOf builds a TileTypeMask from a list of types, a convenience used
// throughout pkg/compose and pkg/cif for connectivity/operand masks.
func MaskOf(types ...TileType) TileTypeMask {
	var m TileTypeMask
	for _, t := range types {
		m.Set(t)
	}
	return m
}

// Plane is an index into the planar decomposition. At most 32 planes
// may exist in a single technology.
type Plane int

// MaxPlanes is the largest number of planes a technology may declare.
const MaxPlanes = 32

// PlaneMask is a bit set of planes.
type PlaneMask uint32

// Set adds p to the mask.
func (m *PlaneMask) Set(p Plane) { *m |= 1 << uint(p) }

// Has reports whether p is a member of the mask.
func (m PlaneMask) Has(p Plane) bool { return m&(1<<uint(p)) != 0 }

// Planes returns the member planes in ascending order.
func (m PlaneMask) Planes() []Plane {
	var out []Plane
	for p := Plane(0); p < MaxPlanes; p++ {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Rect is an axis-aligned, half-open rectangle in
// internal coordinate units: [XLo,XHi) x [YLo,YHi).
type Rect struct {
	XLo, YLo, XHi, YHi int64
}

// Empty reports whether r has zero or negative area.
func (r Rect) Empty() bool { return r.XHi <= r.XLo || r.YHi <= r.YLo }

// Overlaps reports whether r and o share positive area.
func (r Rect) Overlaps(o Rect) bool {
	return r.XLo < o.XHi && o.XLo < r.XHi && r.YLo < o.YHi && o.YLo < r.YHi
}

// Contains reports whether r wholly contains o.
func (r Rect) Contains(o Rect) bool {
	return r.XLo <= o.XLo && r.YLo <= o.YLo && r.XHi >= o.XHi && r.YHi >= o.YHi
}

// Intersect returns the overlap of r and o. Callers must check Overlaps
// (or Empty on the result) first.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		XLo: max64(r.XLo, o.XLo),
		YLo: max64(r.YLo, o.YLo),
		XHi: min64(r.XHi, o.XHi),
		YHi: min64(r.YHi, o.YHi),
	}
}

// Union returns the bounding rectangle of r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		XLo: min64(r.XLo, o.XLo),
		YLo: min64(r.YLo, o.YLo),
		XHi: max64(r.XHi, o.XHi),
		YHi: max64(r.YHi, o.YHi),
	}
}

// Grow returns r expanded by d on every side (d may be negative, i.e.
// SHRINK). Callers must check Empty afterwards.
func (r Rect) Grow(d int64) Rect {
	return Rect{XLo: r.XLo - d, YLo: r.YLo - d, XHi: r.XHi + d, YHi: r.YHi + d}
}

// Scale multiplies every coordinate by num/den. It panics if the
// product is not evenly divisible, which callers must avoid by going
// through the rational-rescale contract in pkg/gds.
func (r Rect) Scale(num, den int64) Rect {
	sc := func(v int64) int64 {
		p := v * num
		if p%den != 0 {
			panic(fmt.Sprintf("tile: non-integral scale %d*%d/%d", v, num, den))
		}
		return p / den
	}
	return Rect{XLo: sc(r.XLo), YLo: sc(r.YLo), XHi: sc(r.XHi), YHi: sc(r.YHi)}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Junk is the per-tile client scratch slot ("tile junk" in the
// parlance). It is created lazily by a consumer (pkg/resist) and
// destroyed by that consumer when it is done; the tile database itself
// never interprets it.
type Junk interface{}

// Tile is a maximal rectangle of uniform TileType within a Plane. The
// LB/BL/RT/TR fields are the four corner-stitch neighbor pointers,
// kept up to date by every paint/erase; NeighborsLB etc. in plane.go
// return full edge-neighbor lists by scanning the plane's tiles and do
// not read these pointers.
type Tile struct {
	Rect
	Type TileType

	// Diagonal tiles (not used by the Manhattan-only operators above,
	// but kept for fidelity with the TileType encoding) carry a split
	// flag and left/right subtypes.
	Split      bool
	LeftType   TileType
	RightType  TileType

	// Corner-stitch pointers: LB = tile below-left across the bottom
	// edge, BL = tile left-below across the left edge, RT = tile
	// above-right across the top edge, TR = tile right-above across the
	// right edge. See plane.go for the walk semantics.
	LB, BL, RT, TR *Tile

	plane *Plane
	Junk  Junk
}

// PlaneIndex returns the plane this tile belongs to.
func (t *Tile) PlaneIndex() Plane {
	if t.plane == nil {
		return -1
	}
	return t.plane.index
}
