package tile

import "sort"

// Composer resolves the result of painting or erasing one type onto
// another on a given plane. pkg/compose implements this interface; the
// tile package depends only on the interface so it never needs to know
// about contacts, residues, or composition rules.
type Composer interface {
	Paint(have, arg TileType, plane Plane) TileType
	Erase(have, arg TileType, plane Plane) TileType
}

// Plane is a single-layer tile decomposition: one per mask-layer family
// in the technology. It always contains at least one tile (the
// background, all-Space tile) so that every point in the infinite
// coordinate space has a defined type.
type Plane struct {
	index Plane
	tiles []*Tile // arena; order is insertion order, not spatial order
	outer Rect    // the Space bound the plane was initialized with
}

// NewPlane creates an empty plane spanning bound, entirely of type
// Space. bound should be large enough to contain every tile the plane
// will ever hold; paints outside it are clipped.
func NewPlane(index Plane, bound Rect) *Plane {
	p := &Plane{index: index, outer: bound}
	root := &Tile{Rect: bound, Type: Space, plane: p}
	p.tiles = []*Tile{root}
	return p
}

// Index returns the plane's index.
func (p *Plane) Index() Plane { return p.index }

// OuterBound returns the Space bound the plane was created with.
func (p *Plane) OuterBound() Rect { return p.outer }

// Tiles returns every tile currently in the plane. The slice is owned
// by the caller; mutating it does not affect the plane.
func (p *Plane) Tiles() []*Tile {
	out := make([]*Tile, len(p.tiles))
	copy(out, p.tiles)
	return out
}

// PointTile returns the tile covering (x,y), or nil if outside the
// plane's bound. Point location is a linear scan over the arena; real
// corner-stitch implementations do this in O(1) amortized by walking
// from a neighboring tile, but the search *contract* (what callers may
// assume) is the same either way.
func (p *Plane) PointTile(x, y int64) *Tile {
	for _, t := range p.tiles {
		if x >= t.XLo && x < t.XHi && y >= t.YLo && y < t.YHi {
			return t
		}
	}
	return nil
}

// SearchArea iterates every tile overlapping rect whose type is a
// member of mask (a nil mask matches every type), calling fn for each.
// If fn returns false the search stops early. Tiles are visited in an
// deterministic order: by YLo, then by XLo.
func (p *Plane) SearchArea(rect Rect, mask *TileTypeMask, fn func(*Tile) bool) {
	cand := make([]*Tile, 0, len(p.tiles))
	for _, t := range p.tiles {
		if !t.Rect.Overlaps(rect) {
			continue
		}
		if mask != nil && !mask.Has(t.Type) {
			continue
		}
		cand = append(cand, t)
	}
	sort.Slice(cand, func(i, j int) bool {
		if cand[i].YLo != cand[j].YLo {
			return cand[i].YLo < cand[j].YLo
		}
		return cand[i].XLo < cand[j].XLo
	})
	for _, t := range cand {
		if !fn(t) {
			return
		}
	}
}

// rebuild discards the current tile set and replaces it with frags,
// merging edge-adjacent same-type rectangles that share a full run
// along their common edge, then recomputes every stitch pointer. This
// is the mutation primitive behind Paint/Erase.
func (p *Plane) rebuild(frags []*Tile) {
	frags = mergeCoalesce(frags)
	for _, t := range frags {
		t.plane = p
		t.LB, t.BL, t.RT, t.TR = nil, nil, nil, nil
	}
	p.tiles = frags
	p.restitch()
}

// restitch recomputes the four corner-stitch pointers for every tile by
// brute-force edge adjacency. O(n^2); acceptable for the cell sizes
// the engines built on top operate on (single flooded nets, single CIF
// layers), not for whole-chip planes.
func (p *Plane) restitch() {
	for _, t := range p.tiles {
		t.LB, t.BL, t.RT, t.TR = nil, nil, nil, nil
	}
	for _, a := range p.tiles {
		for _, b := range p.tiles {
			if a == b {
				continue
			}
			// b sits directly above a's top edge, sharing x-range.
			if b.YLo == a.YHi && a.XLo < b.XHi && b.XLo < a.XHi {
				if a.RT == nil || b.XHi > a.RT.XHi {
					a.RT = b
				}
			}
			// b sits directly right of a's right edge, sharing y-range.
			if b.XLo == a.XHi && a.YLo < b.YHi && b.YLo < a.YHi {
				if a.TR == nil || b.YHi > a.TR.YHi {
					a.TR = b
				}
			}
			// b sits directly below a's bottom edge.
			if b.YHi == a.YLo && a.XLo < b.XHi && b.XLo < a.XHi {
				if a.LB == nil || b.XLo < a.LB.XLo {
					a.LB = b
				}
			}
			// b sits directly left of a's left edge.
			if b.XHi == a.XLo && a.YLo < b.YHi && b.YLo < a.YHi {
				if a.BL == nil || b.YLo < a.BL.YLo {
					a.BL = b
				}
			}
		}
	}
}

// mergeCoalesce repeatedly merges pairs of same-type rectangles that
// together form a rectangle (one shares a full edge with the other),
// keeping the tile arena from fragmenting without bound across repeated
// paints.
func mergeCoalesce(in []*Tile) []*Tile {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(in); i++ {
			for j := i + 1; j < len(in); j++ {
				if merged, ok := tryMerge(in[i], in[j]); ok {
					merged.plane = in[i].plane
					in[i] = merged
					in = append(in[:j], in[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return in
}

func tryMerge(a, b *Tile) (*Tile, bool) {
	if a.Type != b.Type || a.Split || b.Split {
		return nil, false
	}
	if a.YLo == b.YLo && a.YHi == b.YHi && (a.XHi == b.XLo || b.XHi == a.XLo) {
		r := Rect{XLo: min64(a.XLo, b.XLo), XHi: max64(a.XHi, b.XHi), YLo: a.YLo, YHi: a.YHi}
		return &Tile{Rect: r, Type: a.Type}, true
	}
	if a.XLo == b.XLo && a.XHi == b.XHi && (a.YHi == b.YLo || b.YHi == a.YLo) {
		r := Rect{XLo: a.XLo, XHi: a.XHi, YLo: min64(a.YLo, b.YLo), YHi: max64(a.YHi, b.YHi)}
		return &Tile{Rect: r, Type: a.Type}, true
	}
	return nil, false
}

// Paint applies typ to rect via comp's composition rules: every
// existing tile overlapping rect is resolved against typ
// tile-by-tile (comp.Paint(existing.Type, typ, p.index)). Only when no
// existing tile overlaps rect at all is rect filled, with
// comp.Paint(Space, typ, p.index); a rect that existing tiles cover
// only in part gets no fill for the uncovered rest.
func (p *Plane) Paint(rect Rect, typ TileType, comp Composer) {
	p.apply(rect, typ, comp, false)
}

// Erase applies typ as the erasing argument to rect via comp's erase
// rules.
func (p *Plane) Erase(rect Rect, typ TileType, comp Composer) {
	p.apply(rect, typ, comp, true)
}

func (p *Plane) apply(rect Rect, typ TileType, comp Composer, erase bool) {
	if rect.Empty() {
		return
	}
	rect = rect.Intersect(p.outer)
	if rect.Empty() {
		return
	}

	var kept []*Tile
	for _, t := range p.tiles {
		if !t.Rect.Overlaps(rect) {
			kept = append(kept, t)
			continue
		}
		// Split t into the part outside rect (kept unchanged) and the
		// part inside rect (resolved through the composition table).
		pieces := splitOutside(t.Rect, rect)
		for _, pr := range pieces {
			kept = append(kept, &Tile{Rect: pr, Type: t.Type})
		}
		inter := t.Rect.Intersect(rect)
		var result TileType
		if erase {
			result = comp.Erase(t.Type, typ, p.index)
		} else {
			result = comp.Paint(t.Type, typ, p.index)
		}
		kept = append(kept, &Tile{Rect: inter, Type: result})
	}

	// When no existing tile overlaps rect, rect is background (Space);
	// paint/erase it against Space per the composer so defaults
	// ("paint X onto SPACE on X's home plane => X") still apply.
	covered := Rect{}
	have := false
	for _, t := range p.tiles {
		if t.Rect.Overlaps(rect) {
			if !have {
				covered = t.Rect.Intersect(rect)
				have = true
			} else {
				covered = covered.Union(t.Rect.Intersect(rect))
			}
		}
	}
	if !have {
		var result TileType
		if erase {
			result = comp.Erase(Space, typ, p.index)
		} else {
			result = comp.Paint(Space, typ, p.index)
		}
		kept = append(kept, &Tile{Rect: rect, Type: result})
	}

	p.rebuild(kept)
}

// splitOutside returns up to four rectangles covering outer minus the
// overlapping inner region (inner must overlap outer).
func splitOutside(outer, inner Rect) []Rect {
	inter := outer.Intersect(inner)
	var out []Rect
	if outer.YLo < inter.YLo {
		out = append(out, Rect{outer.XLo, outer.YLo, outer.XHi, inter.YLo})
	}
	if inter.YHi < outer.YHi {
		out = append(out, Rect{outer.XLo, inter.YHi, outer.XHi, outer.YHi})
	}
	if outer.XLo < inter.XLo {
		out = append(out, Rect{outer.XLo, inter.YLo, inter.XLo, inter.YHi})
	}
	if inter.XHi < outer.XHi {
		out = append(out, Rect{inter.XHi, inter.YLo, outer.XHi, inter.YHi})
	}
	return out
}

// NeighborsLB returns the tiles edge-adjacent below t's bottom edge,
// ordered right to left. It finds them by scanning the plane's tiles,
// not by following t.LB.
func (t *Tile) NeighborsLB() []*Tile {
	return walkBottom(t)
}

// NeighborsBL returns the tiles edge-adjacent left of t's left edge.
func (t *Tile) NeighborsBL() []*Tile {
	return walkLeft(t)
}

// NeighborsRT returns the tiles edge-adjacent above t's top edge.
func (t *Tile) NeighborsRT() []*Tile {
	return walkTop(t)
}

// NeighborsTR returns the tiles edge-adjacent right of t's right edge.
func (t *Tile) NeighborsTR() []*Tile {
	return walkRight(t)
}

func walkTop(t *Tile) []*Tile {
	var out []*Tile
	if t.plane == nil {
		return out
	}
	for _, o := range t.plane.tiles {
		if o.YLo == t.YHi && o.XLo < t.XHi && t.XLo < o.XHi {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XLo < out[j].XLo })
	return out
}

func walkBottom(t *Tile) []*Tile {
	var out []*Tile
	if t.plane == nil {
		return out
	}
	for _, o := range t.plane.tiles {
		if o.YHi == t.YLo && o.XLo < t.XHi && t.XLo < o.XHi {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XHi > out[j].XHi })
	return out
}

func walkLeft(t *Tile) []*Tile {
	var out []*Tile
	if t.plane == nil {
		return out
	}
	for _, o := range t.plane.tiles {
		if o.XHi == t.XLo && o.YLo < t.YHi && t.YLo < o.YHi {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YHi > out[j].YHi })
	return out
}

func walkRight(t *Tile) []*Tile {
	var out []*Tile
	if t.plane == nil {
		return out
	}
	for _, o := range t.plane.tiles {
		if o.XLo == t.XHi && o.YLo < t.YHi && t.YLo < o.YHi {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YLo < out[j].YLo })
	return out
}

// RescalePlane multiplies every tile's coordinates by factor/1, the
// mid-parse rescale operation the GDS reader needs
// when its rational scale changes. It mutates the plane in place.
func (p *Plane) RescalePlane(factor int64) {
	for _, t := range p.tiles {
		t.XLo *= factor
		t.XHi *= factor
		t.YLo *= factor
		t.YHi *= factor
	}
	p.outer.XLo *= factor
	p.outer.XHi *= factor
	p.outer.YLo *= factor
	p.outer.YHi *= factor
}
