package gds

import (
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/RTimothyEdwards/magic-core/pkg/elog"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// cachedUse/cachedLabel/cachedDef/cachedLibrary mirror the exported
// shape of tile.CellUse/tile.Label/tile.CellDef/Library closely enough
// to round-trip through gob, without exporting gob tags on the tile
// package's own types (which have unexported plane back-pointers).
type cachedUse struct {
	DefName                                string
	Transform                              tile.Transform
	InstanceName                           string
	ArrayCols, ArrayRows                   int
	ArrayColSpacingX, ArrayColSpacingY     int64
	ArrayRowSpacingX, ArrayRowSpacingY     int64
}

type cachedLabel struct {
	Rect   tile.Rect
	Text   string
	Type   tile.TileType
	Anchor tile.Anchor
	Flags  tile.LabelFlag
}

type cachedTile struct {
	Rect tile.Rect
	Type tile.TileType
}

type cachedPlane struct {
	Outer tile.Rect
	Tiles []cachedTile
}

type cachedDef struct {
	Name   string
	BBox   tile.Rect
	Planes []cachedPlane
	Labels []cachedLabel
	Uses   []cachedUse
}

type cachedLibrary struct {
	Name     string
	ScaleNum int64
	ScaleDen int64
	Defs     []cachedDef
}

// WriteCache serializes l's registry (every non-pending def) as a
// zstd-compressed gob stream, letting repeated reads of the same GDS
// file skip reparsing its geometry entirely.
func WriteCache(w io.Writer, l *Library) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	defer zw.Close()

	cl := cachedLibrary{Name: l.Name, ScaleNum: l.ScaleNum, ScaleDen: l.ScaleDen}
	for _, def := range l.registry.All() {
		if def.Pending {
			continue
		}
		cd := cachedDef{Name: def.Name, BBox: def.BBox}
		for _, p := range def.Planes {
			if p == nil {
				cd.Planes = append(cd.Planes, cachedPlane{})
				continue
			}
			cp := cachedPlane{Outer: p.OuterBound()}
			for _, t := range p.Tiles() {
				if t.Type != tile.Space {
					cp.Tiles = append(cp.Tiles, cachedTile{Rect: t.Rect, Type: t.Type})
				}
			}
			cd.Planes = append(cd.Planes, cp)
		}
		for _, lb := range def.Labels {
			cd.Labels = append(cd.Labels, cachedLabel{Rect: lb.Rect, Text: lb.Text, Type: lb.Type, Anchor: lb.Anchor, Flags: lb.Flags})
		}
		for _, u := range def.Uses {
			defName := ""
			if u.Def != nil {
				defName = u.Def.Name
			}
			cd.Uses = append(cd.Uses, cachedUse{
				DefName: defName, Transform: u.Transform, InstanceName: u.InstanceName,
				ArrayCols: u.ArrayCols, ArrayRows: u.ArrayRows,
				ArrayColSpacingX: u.ArrayColSpacingX, ArrayColSpacingY: u.ArrayColSpacingY,
				ArrayRowSpacingX: u.ArrayRowSpacingX, ArrayRowSpacingY: u.ArrayRowSpacingY,
			})
		}
		cl.Defs = append(cl.Defs, cd)
	}
	return gob.NewEncoder(zw).Encode(cl)
}

// ReadCache decompresses and decodes a cache written by WriteCache,
// rebuilding a Registry without re-parsing the original GDS stream. It
// is the caller's job to verify the source GDS file hasn't changed
// since the cache was written (e.g. via mtime/hash); ReadCache itself
// performs no such check.
func ReadCache(r io.Reader) (*Library, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var cl cachedLibrary
	if err := gob.NewDecoder(zr).Decode(&cl); err != nil {
		return nil, err
	}

	reg := tile.NewRegistry()
	for _, cd := range cl.Defs {
		def, err := reg.Define(cd.Name, len(cd.Planes), cd.BBox)
		if err != nil {
			return nil, err
		}
		for i, cp := range cd.Planes {
			if len(cp.Tiles) == 0 && cp.Outer.Empty() {
				continue
			}
			p := tile.NewPlane(tile.Plane(i), cp.Outer)
			for _, ct := range cp.Tiles {
				p.Paint(ct.Rect, ct.Type, passthroughComposer{})
			}
			def.Planes[i] = p
		}
		for _, lb := range cd.Labels {
			def.PlaceLabel(lb.Rect, lb.Anchor, "", 0, 0, lb.Text, lb.Type, lb.Flags)
		}
	}
	for _, cd := range cl.Defs {
		def, _ := reg.FindDef(cd.Name)
		for _, cu := range cd.Uses {
			child, ok := reg.FindDef(cu.DefName)
			if !ok {
				child = reg.NewDef(cu.DefName)
			}
			def.PlaceUse(&tile.CellUse{
				Def: child, Transform: cu.Transform, InstanceName: cu.InstanceName,
				ArrayCols: cu.ArrayCols, ArrayRows: cu.ArrayRows,
				ArrayColSpacingX: cu.ArrayColSpacingX, ArrayColSpacingY: cu.ArrayColSpacingY,
				ArrayRowSpacingX: cu.ArrayRowSpacingX, ArrayRowSpacingY: cu.ArrayRowSpacingY,
			})
		}
	}

	return &Library{
		Name: cl.Name, ScaleNum: cl.ScaleNum, ScaleDen: cl.ScaleDen,
		registry: reg, errs: elog.NewErrorCounter(elog.NilView{}),
	}, nil
}

// passthroughComposer replays exactly the stored result type with no
// further composition logic, since ReadCache's tiles are already the
// fully-composed result of the original parse.
type passthroughComposer struct{}

func (passthroughComposer) Paint(_, arg tile.TileType, _ tile.Plane) tile.TileType { return arg }
func (passthroughComposer) Erase(_, arg tile.TileType, _ tile.Plane) tile.TileType { return arg }
