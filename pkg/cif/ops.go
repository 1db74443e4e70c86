package cif

import (
	"fmt"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// applyOp mutates wp (the layer's working plane) by evaluating a
// single operator against its operands, resolved through src/cache.
func applyOp(wp *tile.Plane, op CIFOp, style *Style, src Source, cache map[string]*tile.Plane, selfIndex int) error {
	switch op.Op {
	case OpOR:
		return opOR(wp, op, style, src, cache, selfIndex)
	case OpAND:
		return opAND(wp, op, style, src, cache, selfIndex, false)
	case OpANDNOT:
		return opAND(wp, op, style, src, cache, selfIndex, true)
	case OpGROW, OpGROWGrid:
		return opGrow(wp, op.Distance)
	case OpSHRINK:
		return opShrink(wp, op.Distance, src.Bound())
	case OpBloatOR, OpBloatMin, OpBloatMax:
		return opBloat(wp, op)
	case OpBloatAll:
		return opGrow(wp, 1)
	case OpSquares, OpSquaresGrid:
		return opSquares(wp, op.Squares)
	case OpSlots:
		return opSlots(wp, op.Slots)
	case OpBBox:
		return opBBox(wp)
	case OpMaxRectExt:
		return opMaxRect(wp, true)
	case OpMaxRectInt:
		return opMaxRect(wp, false)
	case OpNet:
		return opNet(wp, op, src)
	default:
		return fmt.Errorf("unimplemented opcode %s", op.Op)
	}
}

// opOR unions every operand's geometry into wp.
func opOR(wp *tile.Plane, op CIFOp, style *Style, src Source, cache map[string]*tile.Plane, selfIndex int) error {
	for _, name := range op.Operands {
		rects, err := resolveOperand(name, src, cache, selfIndex, style)
		if err != nil {
			return err
		}
		paintAll(wp, rects)
	}
	return nil
}

// opAND computes the intersection (or, if not, the difference) of the
// operand list's geometry, left to right: AND starts from the first
// operand and keeps only overlap with each subsequent one; AND-NOT
// starts from the first and removes every subsequent one.
func opAND(wp *tile.Plane, op CIFOp, style *Style, src Source, cache map[string]*tile.Plane, selfIndex int, not bool) error {
	if len(op.Operands) == 0 {
		return nil
	}
	first, err := resolveOperand(op.Operands[0], src, cache, selfIndex, style)
	if err != nil {
		return err
	}

	if not {
		paintAll(wp, first)
		for _, name := range op.Operands[1:] {
			rects, err := resolveOperand(name, src, cache, selfIndex, style)
			if err != nil {
				return err
			}
			eraseAll(wp, rects)
		}
		return nil
	}

	acc := first
	for _, name := range op.Operands[1:] {
		rects, err := resolveOperand(name, src, cache, selfIndex, style)
		if err != nil {
			return err
		}
		acc = intersectRectLists(acc, rects)
	}
	paintAll(wp, acc)
	return nil
}

func intersectRectLists(a, b []tile.Rect) []tile.Rect {
	var out []tile.Rect
	for _, ra := range a {
		for _, rb := range b {
			if ra.Overlaps(rb) {
				out = append(out, ra.Intersect(rb))
			}
		}
	}
	return out
}

// opGrow dilates every tile in wp by distance on all four sides: for
// each filled tile, repaint its rectangle grown by distance. Because
// Plane.Paint already merges overlapping inserts into an exact union,
// sequential painting of the grown rectangles produces the correct
// Minkowski dilation with no extra bookkeeping.
func opGrow(wp *tile.Plane, distance int64) error {
	if distance == 0 {
		return nil
	}
	rects := filledRects(wp)
	eraseAll(wp, rects)
	for _, r := range rects {
		paintAll(wp, []tile.Rect{r.Grow(distance)})
	}
	return nil
}

// opShrink erodes wp by distance using the morphological identity
// erode(X) = complement(dilate(complement(X))): paint the bound,
// erase the filled region to get the complement, dilate that
// complement, then the surviving complement-within-bound is the
// eroded X restored by inverting again.
func opShrink(wp *tile.Plane, distance int64, bound tile.Rect) error {
	if distance == 0 {
		return nil
	}
	filled := filledRects(wp)

	complement := tile.NewPlane(0, bound)
	paintAll(complement, []tile.Rect{bound})
	eraseAll(complement, filled)

	if err := opGrow(complement, distance); err != nil {
		return err
	}

	dilatedComplement := filledRects(complement)
	eraseAll(wp, filled)
	paintAll(wp, []tile.Rect{bound})
	eraseAll(wp, dilatedComplement)
	return nil
}

// opBloat grows (distance >= 0) or shrinks (distance < 0) the whole
// working plane by one distance: the first entry's for BLOAT-OR, the
// smallest listed for BLOAT-MIN, the largest listed for BLOAT-MAX. The
// entries' types are not consulted, so the distance does not depend on
// the geometry across each edge.
func opBloat(wp *tile.Plane, op CIFOp) error {
	if len(op.Bloat) == 0 {
		return nil
	}
	d := op.Bloat[0].Distance
	switch op.Op {
	case OpBloatMin:
		for _, b := range op.Bloat[1:] {
			if b.Distance < d {
				d = b.Distance
			}
		}
	case OpBloatMax:
		for _, b := range op.Bloat[1:] {
			if b.Distance > d {
				d = b.Distance
			}
		}
	}
	if d >= 0 {
		return opGrow(wp, d)
	}
	return opShrink(wp, -d, wp.OuterBound())
}

// opSquares replaces every tile with an array of size x size squares
// spaced sep apart and inset border from each tile's boundary,
// matching the classic Magic contact-array generator. For both SQUARES
// and SQUARES_G a nonzero GridX/GridY replaces the horizontal/vertical
// pitch; squares start at each inset tile's lower-left corner and are
// not snapped to a grid.
func opSquares(wp *tile.Plane, p SquaresParams) error {
	rects := filledRects(wp)
	eraseAll(wp, rects)

	size := p.Size
	sep := p.Sep
	if size <= 0 {
		size = 1
	}
	if sep < 0 {
		sep = 0
	}
	pitch := size + sep
	if p.GridX > 0 {
		pitch = p.GridX
	}
	pitchY := size + sep
	if p.GridY > 0 {
		pitchY = p.GridY
	}

	var squares []tile.Rect
	for _, r := range rects {
		lo := r.Grow(-p.Border)
		if lo.Empty() {
			continue
		}
		for y := lo.YLo; y+size <= lo.YHi; y += pitchY {
			for x := lo.XLo; x+size <= lo.XHi; x += pitch {
				squares = append(squares, tile.Rect{XLo: x, YLo: y, XHi: x + size, YHi: y + size})
			}
		}
	}
	paintAll(wp, squares)
	return nil
}

// opSlots replaces every tile with a row of long slots along its
// longer axis, spaced per p, approximating Magic's SLOTS operator
// (used to satisfy metal-density fill rules without solid plates).
func opSlots(wp *tile.Plane, p SlotsParams) error {
	rects := filledRects(wp)
	eraseAll(wp, rects)

	var slots []tile.Rect
	for _, r := range rects {
		lo := r.Grow(-p.ShortBorder)
		if lo.Empty() {
			continue
		}
		width := lo.XHi - lo.XLo
		height := lo.YHi - lo.YLo
		horizontal := width >= height

		shortSize, shortSep := p.ShortSize, p.ShortSep
		longSize, longSep := p.LongSize, p.LongSep
		if shortSize <= 0 {
			shortSize = 1
		}
		if longSize <= 0 {
			longSize = 1
		}
		pitchShort := shortSize + shortSep
		pitchLong := longSize + longSep

		if horizontal {
			for y := lo.YLo; y+shortSize <= lo.YHi; y += pitchShort {
				for x := lo.XLo + p.Offset; x+longSize <= lo.XHi; x += pitchLong {
					slots = append(slots, tile.Rect{XLo: x, YLo: y, XHi: x + longSize, YHi: y + shortSize})
				}
			}
		} else {
			for x := lo.XLo; x+shortSize <= lo.XHi; x += pitchShort {
				for y := lo.YLo + p.Offset; y+longSize <= lo.YHi; y += pitchLong {
					slots = append(slots, tile.Rect{XLo: x, YLo: y, XHi: x + shortSize, YHi: y + longSize})
				}
			}
		}
	}
	paintAll(wp, slots)
	return nil
}

// opBBox replaces wp's geometry with the single bounding rectangle of
// all its tiles.
func opBBox(wp *tile.Plane) error {
	rects := filledRects(wp)
	if len(rects) == 0 {
		return nil
	}
	bbox := rects[0]
	for _, r := range rects[1:] {
		bbox = bbox.Union(r)
	}
	eraseAll(wp, rects)
	paintAll(wp, []tile.Rect{bbox})
	return nil
}

// opMaxRect leaves the working plane unchanged for both MAXRECT and
// MAXRECT-INT. The plane's tiles are whatever mergeCoalesce's pairwise
// merging of same-type rectangles left; they are not replaced by
// maximal rectangles.
func opMaxRect(wp *tile.Plane, external bool) error {
	_ = external
	return nil
}

// opNet finds the connected component of filled tiles reachable from
// the label named by op.NetLabel, discarding every other tile: an
// edge-connectivity flood walk seeded at the label's point, used to
// extract a single net's geometry out of a layer with many disjoint
// pieces.
func opNet(wp *tile.Plane, op CIFOp, src Source) error {
	x, y, ok := src.LabelPoint(op.NetLabel)
	if !ok {
		return fmt.Errorf("cif: NET: label %q not found", op.NetLabel)
	}

	start := wp.PointTile(x, y)
	if start == nil || start.Type != filled {
		eraseAll(wp, filledRects(wp))
		return nil
	}

	seen := map[*tile.Tile]bool{start: true}
	queue := []*tile.Tile{start}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, n := range neighborsOf(wp, t) {
			if n.Type == filled && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}

	var drop []tile.Rect
	for _, t := range wp.Tiles() {
		if t.Type == filled && !seen[t] {
			drop = append(drop, t.Rect)
		}
	}
	eraseAll(wp, drop)
	return nil
}

func neighborsOf(_ *tile.Plane, t *tile.Tile) []*tile.Tile {
	var out []*tile.Tile
	out = append(out, t.NeighborsLB()...)
	out = append(out, t.NeighborsBL()...)
	out = append(out, t.NeighborsRT()...)
	out = append(out, t.NeighborsTR()...)
	return out
}
