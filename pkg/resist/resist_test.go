package resist

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// dumpNetworkOnFailure logs net's node/resistor graph if the test ends
// up failed, since a wrong extraction or simplification is much easier
// to read as a full dump than from one assertion's diff.
func dumpNetworkOnFailure(t *testing.T, net *Network) {
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("network:\n%s", spew.Sdump(net))
		}
	})
}

const typeM1 tile.TileType = tile.TechDepBase

type identityComposer struct{}

func (identityComposer) Paint(have, arg tile.TileType, _ tile.Plane) tile.TileType {
	if arg == tile.Space {
		return have
	}
	return arg
}

func (identityComposer) Erase(have, arg tile.TileType, _ tile.Plane) tile.TileType {
	if have == arg {
		return tile.Space
	}
	return have
}

func newWireCell() *tile.CellDef {
	def := tile.NewCellDef("net1", 1, tile.Rect{XLo: -1000, YLo: -1000, XHi: 1000, YHi: 1000})
	p := def.Plane(0)
	c := identityComposer{}
	// Three collinear segments, the middle one a shorter height so the
	// plane's same-type coalescing (tile.Plane merges adjoining tiles
	// that share an exact edge) does not fold them back into one tile:
	// the flood must still walk tile-to-tile through partial-overlap
	// edge adjacency.
	p.Paint(tile.Rect{XLo: 0, YLo: 0, XHi: 100, YHi: 20}, typeM1, c)
	p.Paint(tile.Rect{XLo: 100, YLo: 0, XHi: 200, YHi: 15}, typeM1, c)
	p.Paint(tile.Rect{XLo: 200, YLo: 0, XHi: 300, YHi: 20}, typeM1, c)
	return def
}

func newExtractor() *Extractor {
	return &Extractor{
		Connect:  map[tile.TileType]tile.TileTypeMask{},
		SheetRes: map[tile.TileType]int64{typeM1: 50},
	}
}

func TestExtractNetFloodsCollinearTiles(t *testing.T) {
	def := newWireCell()
	e := newExtractor()

	net, err := e.ExtractNet(def, 0, 10, 10, "IN", []Port{{Name: "OUT", Rect: tile.Rect{XLo: 280, YLo: 0, XHi: 300, YHi: 20}}})
	require.NoError(t, err)
	require.NotNil(t, net)
	dumpNetworkOnFailure(t, net)

	assert.Len(t, net.Nodes(), 3)
	assert.Len(t, net.liveResistors(), 2)

	origin := net.Node(net.Origin())
	assert.Equal(t, "IN", origin.Name)

	var outNode *ResNode
	for _, n := range net.Nodes() {
		if n.Name == "OUT" {
			outNode = n
		}
	}
	require.NotNil(t, outNode, "port should attach a name to the far node")
}

func TestExtractNetNoStartTile(t *testing.T) {
	def := newWireCell()
	e := newExtractor()
	_, err := e.ExtractNet(def, 0, 500, 500, "IN", nil)
	assert.ErrorIs(t, err, ErrNoStartTile)
}

func TestSimplifySeriesReduction(t *testing.T) {
	// A -R1(10)- N -R2(15)- B, matching scenario E3.
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	n := net.NewNode(10, 0, "")
	b := net.NewNode(25, 0, "B")
	net.Node(n).Area = 100
	net.NewResistor(a, n, 10, 10, 10, typeM1)
	net.NewResistor(n, b, 15, 15, 10, typeM1)
	dumpNetworkOnFailure(t, net)

	Simplify(net)

	live := net.liveResistors()
	require.Len(t, live, 1)
	assert.Equal(t, int64(25), live[0].Milliohms)

	na := net.Node(a)
	nb := net.Node(b)
	// Absorbed area is distributed proportional to the opposite arm:
	// A-side gets R2's share (15/25), B-side gets R1's share (10/25).
	assert.Equal(t, int64(60), na.Area)
	assert.Equal(t, int64(40), nb.Area)
}

func TestSimplifyParallelReduction(t *testing.T) {
	// A-R1(30)-B, A-R2(60)-B, matching scenario E4: 30*60/90 = 20.
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	b := net.NewNode(100, 0, "B")
	net.NewResistor(a, b, 30, 10, 5, typeM1)
	net.NewResistor(a, b, 60, 10, 5, typeM1)

	Simplify(net)

	live := net.liveResistors()
	require.Len(t, live, 1)
	assert.Equal(t, int64(20), live[0].Milliohms)
}

func TestSimplifySelfLoopRemoved(t *testing.T) {
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	net.NewResistor(a, a, 5, 1, 1, typeM1)

	Simplify(net)
	assert.Len(t, net.liveResistors(), 0)
}

func TestSimplifyZeroOhmMerge(t *testing.T) {
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	n := net.NewNode(5, 0, "")
	b := net.NewNode(10, 0, "B")
	net.NewResistor(a, n, 0, 0, 0, typeM1)
	net.NewResistor(n, b, 40, 10, 10, typeM1)

	Simplify(net)

	live := net.liveResistors()
	require.Len(t, live, 1)
	assert.Equal(t, int64(40), live[0].Milliohms)
	assert.True(t, live[0].A == a || live[0].B == a)
}

func TestSimplifyTriangleToYDegenerateNoDivideByZero(t *testing.T) {
	// Boundary B5: sum of the three triangle arms is zero (all three
	// resistor values are 0); every new Y arm must come out 0, not a
	// division-by-zero panic.
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	b := net.NewNode(10, 0, "B")
	c := net.NewNode(5, 10, "C")
	net.NewResistor(a, b, 0, 10, 5, typeM1)
	net.NewResistor(b, c, 0, 10, 5, typeM1)
	net.NewResistor(c, a, 0, 10, 5, typeM1)

	assert.NotPanics(t, func() { Simplify(net) })
}

func TestSimplifyTriangleToY(t *testing.T) {
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	b := net.NewNode(10, 0, "B")
	c := net.NewNode(5, 10, "C")
	rab := net.NewResistor(a, b, 10, 10, 5, typeM1)
	rbc := net.NewResistor(b, c, 20, 10, 5, typeM1)
	rca := net.NewResistor(c, a, 30, 10, 5, typeM1)
	_ = rab
	_ = rbc
	_ = rca

	changed := tryTrianglePass(net)
	require.True(t, changed)

	// Triangle resistors are gone, replaced by exactly 3 Y arms from a
	// fresh internal node.
	live := net.liveResistors()
	require.Len(t, live, 3)
	sum := int64(10 + 20 + 30)
	wantArmAB := int64(10*30) / sum // adjacent to A: rab*rca/sum
	found := false
	for _, r := range live {
		if r.Milliohms == wantArmAB {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmitTextProducesExpectedRecords(t *testing.T) {
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	b := net.NewNode(100, 0, "B")
	net.NewResistor(a, b, 500, 100, 10, typeM1)

	var sb strings.Builder
	require.NoError(t, EmitText(&sb, net, 0))
	out := sb.String()
	assert.True(t, strings.Contains(out, `rnode "A"`))
	assert.True(t, strings.Contains(out, `rnode "B"`))
	assert.True(t, strings.Contains(out, `resist "A" "B" 500`))
}

func TestEmitFastHenryHeader(t *testing.T) {
	net := NewNetwork(nil)
	a := net.NewNode(0, 0, "A")
	b := net.NewNode(10, 0, "B")
	net.NewResistor(a, b, 10, 10, 5, typeM1)

	var sb strings.Builder
	require.NoError(t, EmitFastHenry(&sb, net, nil))
	out := sb.String()
	assert.True(t, strings.HasPrefix(out, ".Units um\n"))
	assert.True(t, strings.Contains(out, "Gsub"))
	assert.True(t, strings.Contains(out, "NA x=0 y=0"))
}

func TestDeviceTableRecognizesDiffusion(t *testing.T) {
	gate := tile.TechDepBase
	diff := tile.TechDepBase + 1
	dt := NewDeviceTable()
	dt.Register(gate, diff)

	gateTile := &tile.Tile{Rect: tile.Rect{XLo: 0, YLo: 0, XHi: 10, YHi: 10}, Type: gate}
	diffTile := &tile.Tile{Rect: tile.Rect{XLo: 10, YLo: 0, XHi: 20, YHi: 10}, Type: diff}

	assert.True(t, dt.CheckDevice(gateTile, diffTile))
	assert.False(t, dt.CheckDevice(diffTile, gateTile))
}

func TestNoMergeMaskForbidsAcrossTypes(t *testing.T) {
	m := NewNoMergeMask()
	poly := tile.TechDepBase
	m1 := tile.TechDepBase + 1
	assert.True(t, m.Allowed(poly, m1))
	m.Forbid(poly, m1)
	assert.False(t, m.Allowed(poly, m1))
	assert.False(t, m.Allowed(m1, poly))
}
