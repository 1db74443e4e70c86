package cif

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// filled is the working-plane's single "occupied" tile type; Space
// means "empty of this layer's geometry". Working planes never need
// more than these two types because each CIF layer is evaluated
// independently.
const filled tile.TileType = 1

// orComposer implements tile.Composer with plain set-union/no-op
// semantics: it is the only composition rule the CIF engine's scratch
// planes need, since real layer composition (contacts, residues) is
// pkg/compose's concern and happens on the mask database, not here.
type orComposer struct{}

func (orComposer) Paint(have, arg tile.TileType, _ tile.Plane) tile.TileType {
	if arg != tile.Space {
		return filled
	}
	return have
}

func (orComposer) Erase(have, arg tile.TileType, _ tile.Plane) tile.TileType {
	if arg != tile.Space {
		return tile.Space
	}
	return have
}

// Source supplies operand geometry to the engine: mask-type rectangles
// from the underlying cell, and a label lookup for the NET operator.
// pkg/gds's painted CellDef, wrapped, implements this in production;
// tests supply a simple in-memory stub.
type Source interface {
	// TypeRects returns every rectangle of TileType typ across the
	// source's planes, in engine (internal) coordinate units.
	TypeRects(typ tile.TileType) []tile.Rect
	// ResolveTypeName maps a user type name (as it appears as a CIF
	// operand) to a TileType, or ok=false if unknown.
	ResolveTypeName(name string) (tile.TileType, bool)
	// LabelPoint returns the coordinate of a placed label by name, for
	// the NET operator's flood start point.
	LabelPoint(name string) (x, y int64, ok bool)
	// Bound returns the working bound every scratch plane should span.
	Bound() tile.Rect
}

// Result is one evaluated layer's output geometry: the filled tiles of
// its working plane, in the source's internal units (no expander or
// reducer scaling is applied).
type Result struct {
	Layer *CIFLayer
	Rects []tile.Rect
}

// Evaluate runs every layer of style (temp layers included) against
// src, returning one Result per emitted (non-LayerTemp) layer in
// declaration order.
// Evaluation of layer N may reference any layer 0..N-1 by name as an
// operand (a "templayer"); referencing a later or nonexistent layer is
// an error (cycles are disallowed and detected by forward-only
// resolution). Layers whose templayer references all land in earlier
// levels of that dependency chain are independent of one another: each
// run of consecutive same-level layers is evaluated concurrently as one
// errgroup wave (a level interrupted by a layer of another level runs
// as more than one wave).
func Evaluate(style *Style, src Source, isTop bool) ([]Result, error) {
	cache := make(map[string]*tile.Plane, len(style.Layers))
	levels := layerLevels(style)
	var results []Result

	i := 0
	for i < len(style.Layers) {
		j := i
		for j < len(style.Layers) && levels[j] == levels[i] {
			j++
		}

		wave := make([]waveOutput, j-i)
		g := new(errgroup.Group)
		for k := i; k < j; k++ {
			k := k
			layer := style.Layers[k]
			g.Go(func() error {
				wp := tile.NewPlane(0, src.Bound())
				for _, op := range layer.Ops {
					if err := applyOp(wp, op, style, src, cache, k); err != nil {
						return fmt.Errorf("cif: layer %q op %s: %w", layer.Name, op.Op, err)
					}
				}
				out := waveOutput{name: layer.Name, plane: wp}
				if !layer.IsTemp() {
					out.result = &Result{Layer: layer, Rects: filledRects(wp)}
				}
				wave[k-i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, out := range wave {
			cache[out.name] = out.plane
			if out.result != nil {
				results = append(results, *out.result)
			}
		}
		i = j
	}

	return results, nil
}

// waveOutput is one layer's evaluated plane, merged into the shared
// cache only after its whole level has finished (cache is read-only
// while a level's goroutines run, so concurrent reads need no lock).
type waveOutput struct {
	name   string
	plane  *tile.Plane
	result *Result
}

// layerLevels assigns each layer the length of its longest templayer
// dependency chain; layers sharing a level reference no layer within
// that same level and can run concurrently.
func layerLevels(style *Style) []int {
	levels := make([]int, len(style.Layers))
	for i, layer := range style.Layers {
		max := -1
		for _, dep := range templayerRefs(layer, style) {
			if dep < i && levels[dep] > max {
				max = levels[dep]
			}
		}
		levels[i] = max + 1
	}
	return levels
}

// templayerRefs returns the indices of every earlier layer an
// operator's operand names reference (Bloat/Squares/Slots parameters
// carry resolved TileTypes, not names, so only Operands can name one).
func templayerRefs(layer *CIFLayer, style *Style) []int {
	seen := make(map[int]bool)
	for _, op := range layer.Ops {
		for _, name := range op.Operands {
			if idx := style.IndexOf(name); idx >= 0 {
				seen[idx] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	return out
}

// resolveOperand returns the filled rectangles an operand token
// denotes: either an earlier (already-cached) CIF layer, or a mask
// TileType resolved through src.
func resolveOperand(name string, src Source, cache map[string]*tile.Plane, selfIndex int, style *Style) ([]tile.Rect, error) {
	if idx := style.IndexOf(name); idx >= 0 {
		if idx >= selfIndex {
			return nil, fmt.Errorf("cif: operand %q is not yet defined (forward/cyclic reference)", name)
		}
		p, ok := cache[name]
		if !ok {
			return nil, fmt.Errorf("cif: operand %q not evaluated yet", name)
		}
		return filledRects(p), nil
	}
	if typ, ok := src.ResolveTypeName(name); ok {
		return src.TypeRects(typ), nil
	}
	return nil, fmt.Errorf("cif: unknown operand %q", name)
}

func filledRects(p *tile.Plane) []tile.Rect {
	var out []tile.Rect
	for _, t := range p.Tiles() {
		if t.Type == filled {
			out = append(out, t.Rect)
		}
	}
	return out
}

func paintAll(p *tile.Plane, rects []tile.Rect) {
	c := orComposer{}
	for _, r := range rects {
		p.Paint(r, filled, c)
	}
}

func eraseAll(p *tile.Plane, rects []tile.Rect) {
	c := orComposer{}
	for _, r := range rects {
		p.Erase(r, filled, c)
	}
}

// gcd computes the greatest common divisor of a and b (both treated as
// non-negative).
func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// allDistances collects every op distance/parameter in a style, used
// by Reduce to find the GCF to divide out.
func (s *Style) allDistances() []int64 {
	var out []int64
	for _, l := range s.Layers {
		for _, op := range l.Ops {
			if op.Distance != 0 {
				out = append(out, op.Distance)
			}
			for _, b := range op.Bloat {
				if b.Distance != 0 {
					out = append(out, b.Distance)
				}
			}
			if op.Op == OpSquares || op.Op == OpSquaresGrid {
				out = append(out, nonzero(op.Squares.Border, op.Squares.Size, op.Squares.Sep, op.Squares.GridX, op.Squares.GridY)...)
			}
			if op.Op == OpSlots {
				out = append(out, nonzero(op.Slots.ShortBorder, op.Slots.ShortSize, op.Slots.ShortSep,
					op.Slots.LongBorder, op.Slots.LongSize, op.Slots.LongSep, op.Slots.Offset)...)
			}
		}
	}
	return out
}

func nonzero(vs ...int64) []int64 {
	var out []int64
	for _, v := range vs {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

func (s *Style) scaleAll(factor int64) {
	for _, l := range s.Layers {
		for i := range l.Ops {
			op := &l.Ops[i]
			op.Distance *= factor
			for j := range op.Bloat {
				op.Bloat[j].Distance *= factor
			}
			op.Squares.Border *= factor
			op.Squares.Size *= factor
			op.Squares.Sep *= factor
			op.Squares.GridX *= factor
			op.Squares.GridY *= factor
			op.Slots.ShortBorder *= factor
			op.Slots.ShortSize *= factor
			op.Slots.ShortSep *= factor
			op.Slots.LongBorder *= factor
			op.Slots.LongSize *= factor
			op.Slots.LongSep *= factor
			op.Slots.Offset *= factor
		}
	}
}

func (s *Style) divideAll(factor int64) {
	if factor <= 1 {
		return
	}
	for _, l := range s.Layers {
		for i := range l.Ops {
			op := &l.Ops[i]
			op.Distance /= factor
			for j := range op.Bloat {
				op.Bloat[j].Distance /= factor
			}
			op.Squares.Border /= factor
			op.Squares.Size /= factor
			op.Squares.Sep /= factor
			op.Squares.GridX /= factor
			op.Squares.GridY /= factor
			op.Slots.ShortBorder /= factor
			op.Slots.ShortSize /= factor
			op.Slots.ShortSep /= factor
			op.Slots.LongBorder /= factor
			op.Slots.LongSize /= factor
			op.Slots.LongSep /= factor
			op.Slots.Offset /= factor
		}
	}
}

// hasOddSizeOrSep reports whether any SQUARES/SLOTS size or separation
// is odd, the condition tied to the half-grid doubling
// rule.
func (s *Style) hasOddSizeOrSep() bool {
	for _, l := range s.Layers {
		for _, op := range l.Ops {
			if op.Op == OpSquares || op.Op == OpSquaresGrid {
				if isOdd(op.Squares.Size) || isOdd(op.Squares.Sep) {
					return true
				}
			}
			if op.Op == OpSlots {
				if isOdd(op.Slots.ShortSize) || isOdd(op.Slots.ShortSep) ||
					isOdd(op.Slots.LongSize) || isOdd(op.Slots.LongSep) {
					return true
				}
			}
		}
	}
	return false
}

func isOdd(v int64) bool { return v%2 != 0 }

// Reduce divides (scale, expander, every op distance/parameter) by
// their GCF, a load-time minimization step.
func (s *Style) Reduce() {
	g := gcd(s.ScaleNum, s.Expander)
	for _, d := range s.allDistances() {
		g = gcd(g, d)
	}
	if g > 1 {
		s.ScaleNum /= g
		s.Expander /= g
		s.divideAll(g)
	}
}

// Rescale implements the rescale contract: when the
// host's lambda changes from (n0,d0) to (n,d), every op distance and
// parameter is multiplied by d, then the whole (scale, expander,
// distances) tuple is reduced by its GCF; if the result leaves an odd
// scale or any odd squares/slots size/sep, numerator and denominator
// are further doubled so half-grid contact centering stays exact.
func (s *Style) Rescale(newNum, newDen int64) error {
	if newDen <= 0 {
		return fmt.Errorf("cif: Rescale: non-positive denominator %d", newDen)
	}
	s.ScaleNum *= newNum
	s.Expander *= newDen
	s.scaleAll(newDen)
	s.Reduce()
	if isOdd(s.ScaleNum) || s.hasOddSizeOrSep() {
		s.ScaleNum *= 2
		s.Expander *= 2
		s.scaleAll(2)
	}
	return nil
}

// ApplyGridLimit converts SQUARES to SQUARES_G wherever its pitch
// (size+sep) would produce geometry finer than GridLimit tech units,
// per the grid-limit directive.
func (s *Style) ApplyGridLimit() {
	if s.GridLimit <= 0 {
		return
	}
	for _, l := range s.Layers {
		for i := range l.Ops {
			op := &l.Ops[i]
			if op.Op == OpSquares {
				pitch := op.Squares.Size + op.Squares.Sep
				if pitch < s.GridLimit {
					op.Op = OpSquaresGrid
				}
			}
		}
	}
}

// Radius is the worst-case edge movement a layer's operators can
// cause, used for hierarchical interaction-halo computation.
func (l *CIFLayer) Radius() int64 {
	var r int64
	for _, op := range l.Ops {
		switch op.Op {
		case OpGROW, OpGROWGrid, OpSHRINK:
			if d := abs64(op.Distance); d > r {
				r = d
			}
		case OpBloatOR, OpBloatMin, OpBloatMax:
			for _, b := range op.Bloat {
				if d := abs64(b.Distance); d > r {
					r = d
				}
			}
		case OpBloatAll:
			if r < 1 {
				r = 1
			}
		}
	}
	return r
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// InteractionHalo computes the style's halo = 2*max(radius)/scale + 1:
// the distance from a cell boundary within which hierarchical CIF
// interactions must be recomputed.
func (s *Style) InteractionHalo() int64 {
	var maxR int64
	for _, l := range s.Layers {
		if r := l.Radius(); r > maxR {
			maxR = r
		}
	}
	scale := s.ScaleNum
	if scale == 0 {
		scale = 1
	}
	return 2*maxR/scale + 1
}
