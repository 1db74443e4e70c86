package tile

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dumpPlaneOnFailure logs p's tile list if the test ends up failed,
// for plane layouts too fiddly to eyeball from an assertion diff.
func dumpPlaneOnFailure(t *testing.T, p *Plane) {
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("plane tiles:\n%s", spew.Sdump(p.Tiles()))
		}
	})
}

type identityComposer struct{}

func (identityComposer) Paint(have, arg TileType, plane Plane) TileType {
	if arg == Space {
		return have
	}
	return arg
}

func (identityComposer) Erase(have, arg TileType, plane Plane) TileType {
	if have == arg {
		return Space
	}
	return have
}

func TestPlanePaintCreatesTile(t *testing.T) {
	p := NewPlane(0, Rect{0, 0, 1000, 1000})
	p.Paint(Rect{10, 10, 50, 50}, TileType(5), identityComposer{})

	got := p.PointTile(20, 20)
	require.NotNil(t, got)
	assert.Equal(t, TileType(5), got.Type)

	bg := p.PointTile(5, 5)
	require.NotNil(t, bg)
	assert.Equal(t, Space, bg.Type)
}

func TestPlaneEraseRestoresSpace(t *testing.T) {
	p := NewPlane(0, Rect{0, 0, 100, 100})
	c := identityComposer{}
	p.Paint(Rect{0, 0, 100, 100}, TileType(3), c)
	p.Erase(Rect{0, 0, 100, 100}, TileType(3), c)

	got := p.PointTile(50, 50)
	require.NotNil(t, got)
	assert.Equal(t, Space, got.Type)
}

func TestSearchAreaRespectsMask(t *testing.T) {
	p := NewPlane(0, Rect{0, 0, 100, 100})
	dumpPlaneOnFailure(t, p)
	c := identityComposer{}
	p.Paint(Rect{0, 0, 50, 50}, TileType(1), c)
	p.Paint(Rect{50, 50, 100, 100}, TileType(2), c)

	mask := MaskOf(TileType(2))
	var found []TileType
	p.SearchArea(Rect{0, 0, 100, 100}, &mask, func(tl *Tile) bool {
		found = append(found, tl.Type)
		return true
	})
	for _, ty := range found {
		assert.Equal(t, TileType(2), ty)
	}
	assert.NotEmpty(t, found)
}

func TestNeighborWalks(t *testing.T) {
	p := NewPlane(0, Rect{0, 0, 100, 100})
	c := identityComposer{}
	p.Paint(Rect{0, 0, 50, 50}, TileType(1), c)
	p.Paint(Rect{50, 0, 100, 50}, TileType(2), c)

	left := p.PointTile(10, 10)
	require.NotNil(t, left)
	right := left.NeighborsTR()
	require.Len(t, right, 1)
	assert.Equal(t, TileType(2), right[0].Type)
}

func TestRescalePlane(t *testing.T) {
	p := NewPlane(0, Rect{0, 0, 100, 100})
	c := identityComposer{}
	p.Paint(Rect{10, 10, 20, 20}, TileType(7), c)
	p.RescalePlane(2)

	got := p.PointTile(21, 21)
	require.NotNil(t, got)
	assert.Equal(t, TileType(7), got.Type)
}

func TestRegistryForwardDeclare(t *testing.T) {
	r := NewRegistry()
	d := r.NewDef("FOO")
	assert.True(t, d.Pending)

	real, err := r.Define("FOO", 2, Rect{0, 0, 10, 10})
	require.NoError(t, err)
	assert.False(t, real.Pending)
	assert.Len(t, real.Planes, 2)

	_, err = r.Define("FOO", 2, Rect{0, 0, 10, 10})
	assert.Error(t, err)
}
