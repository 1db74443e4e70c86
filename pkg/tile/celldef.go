package tile

import "fmt"

// Anchor is the attachment point of a Label relative to its rectangle.
type Anchor int

// Anchor values, named the way Magic's geometric anchor points are.
const (
	AnchorCenter Anchor = iota
	AnchorNorth
	AnchorSouth
	AnchorEast
	AnchorWest
	AnchorNorthEast
	AnchorNorthWest
	AnchorSouthEast
	AnchorSouthWest
)

// LabelFlag bits; flags include STICKY.
type LabelFlag uint32

const (
	// LabelSticky marks a label as not subject to reattachment when the
	// geometry it was placed on changes.
	LabelSticky LabelFlag = 1 << iota
)

// Label is a text annotation attached to a rectangle on a given
// TileType within a CellDef.
type Label struct {
	Rect  Rect
	Text  string
	Type  TileType
	Anchor Anchor
	Font  string
	Size  int
	Angle int
	Flags LabelFlag
}

// Transform is a 2D affine placement: rotation/mirror expressed as a
// 2x2 integer matrix plus a translation, matching the GDS STRANS +
// translate convention (pkg/gds builds these directly from STRANS,
// MAG, ANGLE and the SREF/AREF XY points).
type Transform struct {
	A, B, C, D int64 // [[A B] [C D]] applied to (x,y) before translation
	Tx, Ty     int64
}

// Identity is the no-op transform.
var Identity = Transform{A: 1, D: 1}

// Apply maps a point through the transform.
func (t Transform) Apply(x, y int64) (int64, int64) {
	return t.A*x + t.B*y + t.Tx, t.C*x + t.D*y + t.Ty
}

// Compose returns the transform equivalent to applying inner first,
// then t (t.Compose(inner) == x -> t.Apply(inner.Apply(x))). Used to
// build up a GDS SREF's rotate-then-mirror (or vice versa) matrix
// incrementally from STRANS bits.
func (t Transform) Compose(inner Transform) Transform {
	return Transform{
		A:  t.A*inner.A + t.B*inner.C,
		B:  t.A*inner.B + t.B*inner.D,
		C:  t.C*inner.A + t.D*inner.C,
		D:  t.C*inner.B + t.D*inner.D,
		Tx: t.A*inner.Tx + t.B*inner.Ty + t.Tx,
		Ty: t.C*inner.Tx + t.D*inner.Ty + t.Ty,
	}
}

// ApplyRect maps a rectangle through the transform, normalizing the
// result so XLo<=XHi and YLo<=YHi regardless of mirroring/rotation.
func (t Transform) ApplyRect(r Rect) Rect {
	x0, y0 := t.Apply(r.XLo, r.YLo)
	x1, y1 := t.Apply(r.XHi, r.YHi)
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{XLo: x0, YLo: y0, XHi: x1, YHi: y1}
}

// CellUse is the placement of a CellDef within a parent CellDef.
type CellUse struct {
	Def       *CellDef
	Transform Transform
	// InstanceName, when non-empty, overrides the def's own name for
	// display purposes (set from GDS PROPATTR 98, see pkg/gds).
	InstanceName string
	// ArrayCols/ArrayRows/ArrayColSpacing/ArrayRowSpacing describe an
	// AREF; a plain SREF has ArrayCols=ArrayRows=1.
	ArrayCols, ArrayRows           int
	ArrayColSpacingX, ArrayColSpacingY int64
	ArrayRowSpacingX, ArrayRowSpacingY int64
}

// BBox returns the bounding box of the use in parent coordinates,
// accounting for array replication.
func (u *CellUse) BBox() Rect {
	if u.Def == nil {
		return Rect{}
	}
	base := u.Transform.ApplyRect(u.Def.BBox)
	if u.ArrayCols <= 1 && u.ArrayRows <= 1 {
		return base
	}
	r := base
	lastCol := Rect{
		XLo: base.XLo + int64(u.ArrayCols-1)*u.ArrayColSpacingX,
		YLo: base.YLo + int64(u.ArrayCols-1)*u.ArrayColSpacingY,
		XHi: base.XHi + int64(u.ArrayCols-1)*u.ArrayColSpacingX,
		YHi: base.YHi + int64(u.ArrayCols-1)*u.ArrayColSpacingY,
	}
	lastRow := Rect{
		XLo: base.XLo + int64(u.ArrayRows-1)*u.ArrayRowSpacingX,
		YLo: base.YLo + int64(u.ArrayRows-1)*u.ArrayRowSpacingY,
		XHi: base.XHi + int64(u.ArrayRows-1)*u.ArrayRowSpacingX,
		YHi: base.YHi + int64(u.ArrayRows-1)*u.ArrayRowSpacingY,
	}
	r = r.Union(lastCol)
	r = r.Union(lastRow)
	return r
}

// CellDef is a named layout cell: a bounding box, one Plane per
// technology plane, its labels, and the uses (child placements) it
// contains.
type CellDef struct {
	Name   string
	BBox   Rect
	Planes []*Plane // indexed by Plane
	Labels []*Label
	Uses   []*CellUse

	// Pending marks a def that was forward-referenced (by an SREF/AREF
	// naming it before its own BGNSTR was seen) but not yet defined.
	Pending bool
}

// NewCellDef allocates an empty, non-pending def with nPlanes
// planes, each bounded by bound.
func NewCellDef(name string, nPlanes int, bound Rect) *CellDef {
	d := &CellDef{Name: name, BBox: bound}
	d.Planes = make([]*Plane, nPlanes)
	for i := range d.Planes {
		d.Planes[i] = NewPlane(Plane(i), bound)
	}
	return d
}

// Plane returns def's plane p, or nil if out of range.
func (d *CellDef) Plane(p Plane) *Plane {
	if int(p) < 0 || int(p) >= len(d.Planes) {
		return nil
	}
	return d.Planes[p]
}

// PlaceLabel appends a label to the def.
func (d *CellDef) PlaceLabel(rect Rect, anchor Anchor, font string, size, angle int, text string, typ TileType, flags LabelFlag) *Label {
	l := &Label{Rect: rect, Text: text, Type: typ, Anchor: anchor, Font: font, Size: size, Angle: angle, Flags: flags}
	d.Labels = append(d.Labels, l)
	return l
}

// PlaceUse appends a child use to the def.
func (d *CellDef) PlaceUse(use *CellUse) {
	d.Uses = append(d.Uses, use)
	d.BBox = d.BBox.Union(use.BBox())
}

// Registry is a scoped name -> CellDef table. pkg/gds uses it as the GDS reader's
// defInitHash: SREF/AREF references to not-yet-seen structures get a
// Pending stub here, filled in when the real BGNSTR arrives.
type Registry struct {
	byName map[string]*CellDef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*CellDef)}
}

// FindDef looks up a def by name.
func (r *Registry) FindDef(name string) (*CellDef, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// NewDef creates (or returns the existing, possibly Pending) def named
// name.
func (r *Registry) NewDef(name string) *CellDef {
	if d, ok := r.byName[name]; ok {
		return d
	}
	d := &CellDef{Name: name, Pending: true}
	r.byName[name] = d
	return d
}

// Define materializes a previously-pending (or brand new) def with real
// content, clearing Pending.
func (r *Registry) Define(name string, nPlanes int, bound Rect) (*CellDef, error) {
	d, ok := r.byName[name]
	if ok && !d.Pending && len(d.Planes) > 0 {
		return nil, fmt.Errorf("tile: structure %q already defined", name)
	}
	if !ok {
		d = &CellDef{Name: name}
		r.byName[name] = d
	}
	d.BBox = bound
	d.Planes = make([]*Plane, nPlanes)
	for i := range d.Planes {
		d.Planes[i] = NewPlane(Plane(i), bound)
	}
	d.Pending = false
	return d, nil
}

// PendingDefs returns every def still awaiting a definition, e.g. to report
// unresolved SREF/AREF targets at end of parse.
func (r *Registry) PendingDefs() []*CellDef {
	var out []*CellDef
	for _, d := range r.byName {
		if d.Pending {
			out = append(out, d)
		}
	}
	return out
}

// All returns every registered def.
func (r *Registry) All() []*CellDef {
	out := make([]*CellDef, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}
