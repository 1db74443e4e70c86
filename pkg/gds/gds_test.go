package gds

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RTimothyEdwards/magic-core/pkg/compose"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// rec builds one raw record's bytes: header + payload, padded to even
// length as GDS-II requires.
func rec(t RecType, dt DataType, payload []byte) []byte {
	if len(payload)%2 != 0 {
		payload = append(payload, 0)
	}
	length := 4 + len(payload)
	buf := make([]byte, length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(length))
	buf[2] = byte(t)
	buf[3] = byte(dt)
	copy(buf[4:], payload)
	return buf
}

func i2(vs ...int16) []byte {
	buf := make([]byte, len(vs)*2)
	for i, v := range vs {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func i4(vs ...int32) []byte {
	buf := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func ascii(s string) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	return b
}

func r8(vs ...float64) []byte {
	var buf []byte
	for _, v := range vs {
		buf = append(buf, encodeReal8(v)...)
	}
	return buf
}

type fakeXRef struct {
	m map[[2]int16]tile.TileType
}

func (f fakeXRef) ResolveLayer(layer, dt int16) (tile.TileType, bool) {
	t, ok := f.m[[2]int16{layer, dt}]
	return t, ok
}

func buildStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(rec(RecHEADER, DataI2, i2(600)))
	buf.Write(rec(RecBGNLIB, DataI2, i2(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)))
	buf.Write(rec(RecLIBNAME, DataASCII, ascii("TESTLIB")))
	buf.Write(rec(RecUNITS, DataR8, r8(0.001, 1e-9)))

	buf.Write(rec(RecBGNSTR, DataI2, i2(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)))
	buf.Write(rec(RecSTRNAME, DataASCII, ascii("TOP")))

	buf.Write(rec(RecBOUNDARY, DataNone, nil))
	buf.Write(rec(RecLAYER, DataI2, i2(1)))
	buf.Write(rec(RecDATATYPE, DataI2, i2(0)))
	buf.Write(rec(RecXY, DataI4, i4(0, 0, 0, 100, 100, 100, 100, 0, 0, 0)))
	buf.Write(rec(RecENDEL, DataNone, nil))

	buf.Write(rec(RecBOX, DataNone, nil))
	buf.Write(rec(RecLAYER, DataI2, i2(2)))
	buf.Write(rec(RecDATATYPE, DataI2, i2(0)))
	buf.Write(rec(RecXY, DataI4, i4(200, 0, 200, 50, 250, 50, 250, 0, 200, 0)))
	buf.Write(rec(RecENDEL, DataNone, nil))

	buf.Write(rec(RecENDSTR, DataNone, nil))
	buf.Write(rec(RecENDLIB, DataNone, nil))
	return buf.Bytes()
}

const typeMetal1 tile.TileType = tile.TechDepBase
const typeMetal2 tile.TileType = tile.TechDepBase + 1

func setupTable(t *testing.T) *compose.Table {
	t.Helper()
	tbl := compose.NewTable()
	tbl.RegisterType(typeMetal1, tile.MaskOf(0))
	tbl.RegisterType(typeMetal2, tile.MaskOf(1))
	tbl.InitDefaults()
	return tbl
}

func TestReadBasicLibrary(t *testing.T) {
	tbl := setupTable(t)
	xref := fakeXRef{m: map[[2]int16]tile.TileType{
		{1, 0}: typeMetal1,
		{2, 0}: typeMetal2,
	}}

	stream := buildStream(t)
	lib, err := Read(bytes.NewReader(stream), Options{XRef: xref, Composer: tbl})
	require.NoError(t, err)
	assert.Equal(t, "TESTLIB", lib.Name)

	def, ok := lib.Registry().FindDef("TOP")
	require.True(t, ok)
	require.False(t, def.Pending)

	p0 := def.Plane(0)
	require.NotNil(t, p0)
	found := false
	for _, tl := range p0.Tiles() {
		if tl.Type == typeMetal1 {
			found = true
			assert.Equal(t, int64(0), tl.XLo)
			assert.Equal(t, int64(10), tl.XHi) // rescaled 1/10 per the test UNITS record
		}
	}
	assert.True(t, found, "expected metal1 boundary painted")

	p1 := def.Plane(1)
	require.NotNil(t, p1)
	foundBox := false
	for _, tl := range p1.Tiles() {
		if tl.Type == typeMetal2 {
			foundBox = true
		}
	}
	assert.True(t, foundBox, "expected metal2 box painted")
}

func TestReadUnknownLayerWarns(t *testing.T) {
	tbl := setupTable(t)
	xref := fakeXRef{m: map[[2]int16]tile.TileType{}}
	stream := buildStream(t)
	lib, err := Read(bytes.NewReader(stream), Options{XRef: xref, Composer: tbl})
	require.NoError(t, err)
	assert.True(t, lib.ErrorCount() > 0)
}

func TestRescaleCoordGrowsScale(t *testing.T) {
	tbl := setupTable(t)
	xref := fakeXRef{m: map[[2]int16]tile.TileType{{1, 0}: typeMetal1}}
	lib := newLibrary(Options{XRef: xref, Composer: tbl})
	lib.ScaleNum = 1
	lib.ScaleDen = 3
	got := lib.rescaleCoord(5)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, int64(3), lib.ScaleNum) // grew to make 5*num divisible by 3
}

func TestUnitsDerivesScale(t *testing.T) {
	tbl := setupTable(t)
	xref := fakeXRef{m: map[[2]int16]tile.TileType{}}
	lib := newLibrary(Options{XRef: xref, Composer: tbl})
	lib.setUnits(1e-9)
	assert.Equal(t, int64(1), lib.ScaleNum)
	assert.Equal(t, int64(10), lib.ScaleDen)
}
