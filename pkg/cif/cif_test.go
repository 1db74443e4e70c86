package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

const (
	typeMetal1 tile.TileType = tile.TechDepBase
	typeMetal2 tile.TileType = tile.TechDepBase + 1
)

// fakeSource is a minimal in-memory Source for engine tests: it holds
// one rectangle list per mask TileType and a fixed bound.
type fakeSource struct {
	rects  map[tile.TileType][]tile.Rect
	names  map[string]tile.TileType
	labels map[string][2]int64
	bound  tile.Rect
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rects:  make(map[tile.TileType][]tile.Rect),
		names:  map[string]tile.TileType{"m1": typeMetal1, "m2": typeMetal2},
		labels: make(map[string][2]int64),
		bound:  tile.Rect{XLo: -1000, YLo: -1000, XHi: 1000, YHi: 1000},
	}
}

func (f *fakeSource) TypeRects(typ tile.TileType) []tile.Rect { return f.rects[typ] }
func (f *fakeSource) ResolveTypeName(name string) (tile.TileType, bool) {
	t, ok := f.names[name]
	return t, ok
}
func (f *fakeSource) LabelPoint(name string) (int64, int64, bool) {
	p, ok := f.labels[name]
	if !ok {
		return 0, 0, false
	}
	return p[0], p[1], true
}
func (f *fakeSource) Bound() tile.Rect { return f.bound }

func TestEvaluateOR(t *testing.T) {
	src := newFakeSource()
	src.rects[typeMetal1] = []tile.Rect{{XLo: 0, YLo: 0, XHi: 10, YHi: 10}}
	src.rects[typeMetal2] = []tile.Rect{{XLo: 20, YLo: 0, XHi: 30, YHi: 10}}

	style := NewStyle("test")
	style.AddLayer(&CIFLayer{
		Name: "CMF",
		Ops:  []CIFOp{{Op: OpOR, Operands: []string{"m1", "m2"}}},
	})

	results, err := Evaluate(style, src, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Rects, 2)
}

func TestEvaluateANDNOT(t *testing.T) {
	src := newFakeSource()
	src.rects[typeMetal1] = []tile.Rect{{XLo: 0, YLo: 0, XHi: 10, YHi: 10}}
	src.rects[typeMetal2] = []tile.Rect{{XLo: 5, YLo: 0, XHi: 8, YHi: 10}}

	style := NewStyle("test")
	style.AddLayer(&CIFLayer{
		Name: "CUT",
		Ops:  []CIFOp{{Op: OpANDNOT, Operands: []string{"m1", "m2"}}},
	})

	results, err := Evaluate(style, src, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	var total int64
	for _, r := range results[0].Rects {
		total += (r.XHi - r.XLo) * (r.YHi - r.YLo)
	}
	assert.Equal(t, int64(70), total) // 10x10 minus 3x10
}

func TestEvaluateGrowShrinkRoundTrip(t *testing.T) {
	src := newFakeSource()
	src.rects[typeMetal1] = []tile.Rect{{XLo: 0, YLo: 0, XHi: 10, YHi: 10}}

	style := NewStyle("test")
	style.AddLayer(&CIFLayer{
		Name: "GROWN",
		Ops: []CIFOp{
			{Op: OpOR, Operands: []string{"m1"}},
			{Op: OpGROW, Distance: 5},
			{Op: OpSHRINK, Distance: 5},
		},
	})

	results, err := Evaluate(style, src, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Rects, 1)
	assert.Equal(t, tile.Rect{XLo: 0, YLo: 0, XHi: 10, YHi: 10}, results[0].Rects[0])
}

func TestEvaluateTempLayerOperand(t *testing.T) {
	src := newFakeSource()
	src.rects[typeMetal1] = []tile.Rect{{XLo: 0, YLo: 0, XHi: 10, YHi: 10}}

	style := NewStyle("test")
	style.AddLayer(&CIFLayer{
		Name:  "CMFtmp",
		Flags: LayerTemp,
		Ops:   []CIFOp{{Op: OpOR, Operands: []string{"m1"}, Distance: 0}},
	})
	style.AddLayer(&CIFLayer{
		Name: "CMF",
		Ops:  []CIFOp{{Op: OpOR, Operands: []string{"CMFtmp"}}},
	})

	results, err := Evaluate(style, src, true)
	require.NoError(t, err)
	require.Len(t, results, 1) // temp layer never emitted
	assert.Equal(t, "CMF", results[0].Layer.Name)
}

func TestEvaluateForwardReferenceRejected(t *testing.T) {
	style := NewStyle("test")
	style.AddLayer(&CIFLayer{
		Name: "A",
		Ops:  []CIFOp{{Op: OpOR, Operands: []string{"B"}}},
	})
	style.AddLayer(&CIFLayer{
		Name: "B",
		Ops:  []CIFOp{{Op: OpOR, Operands: []string{"m1"}}},
	})

	src := newFakeSource()
	_, err := Evaluate(style, src, true)
	assert.Error(t, err)
}

func TestReduceDividesByGCF(t *testing.T) {
	style := NewStyle("test")
	style.ScaleNum = 4
	style.Expander = 8
	style.AddLayer(&CIFLayer{
		Name: "A",
		Ops:  []CIFOp{{Op: OpGROW, Distance: 12}},
	})
	style.Reduce()
	assert.Equal(t, int64(1), style.ScaleNum)
	assert.Equal(t, int64(2), style.Expander)
	assert.Equal(t, int64(3), style.Layers[0].Ops[0].Distance)
}

func TestApplyGridLimitPromotesSquares(t *testing.T) {
	style := NewStyle("test")
	style.GridLimit = 10
	style.AddLayer(&CIFLayer{
		Name: "CA",
		Ops: []CIFOp{
			{Op: OpSquares, Squares: SquaresParams{Size: 2, Sep: 2}},
		},
	})
	style.ApplyGridLimit()
	assert.Equal(t, OpSquaresGrid, style.Layers[0].Ops[0].Op)
}

func TestInteractionHaloReflectsMaxGrow(t *testing.T) {
	style := NewStyle("test")
	style.ScaleNum = 1
	style.AddLayer(&CIFLayer{
		Name: "A",
		Ops:  []CIFOp{{Op: OpGROW, Distance: 7}},
	})
	style.AddLayer(&CIFLayer{
		Name: "B",
		Ops:  []CIFOp{{Op: OpGROW, Distance: 3}},
	})
	assert.Equal(t, int64(15), style.InteractionHalo()) // 2*7/1 + 1
}
