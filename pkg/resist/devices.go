package resist

import (
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// DeviceClass describes, per TileType, which types are that device's
// gate/channel material and which are its source/drain diffusion, the
// table ResConnectWithSD augments plain connectivity with: a
// source/drain diffusion tile is only flood-reachable from a
// channel tile through device recognition, never through plain
// same-plane adjacency. Grounded on the original's ResConDCS.c
// device-diffusion discovery, supplemented per SPEC_FULL §4.
type DeviceClass struct {
	Gate       tile.TileType
	Diffusions tile.TileTypeMask
}

// DeviceTable maps a gate TileType to its DeviceClass, loaded from the
// technology file's device/fet section alongside resistclasses.
type DeviceTable struct {
	classes map[tile.TileType]DeviceClass
}

// NewDeviceTable creates an empty table.
func NewDeviceTable() *DeviceTable { return &DeviceTable{classes: make(map[tile.TileType]DeviceClass)} }

// Register associates gate with the diffusion types that form its
// source/drain terminals.
func (d *DeviceTable) Register(gate tile.TileType, diffusions ...tile.TileType) {
	d.classes[gate] = DeviceClass{Gate: gate, Diffusions: tile.MaskOf(diffusions...)}
}

// IsGate reports whether typ is a registered device gate/channel type.
func (d *DeviceTable) IsGate(typ tile.TileType) bool {
	_, ok := d.classes[typ]
	return ok
}

// IsDiffusionOf reports whether diff is a source/drain diffusion type
// for gate's device class.
func (d *DeviceTable) IsDiffusionOf(gate, diff tile.TileType) bool {
	c, ok := d.classes[gate]
	return ok && c.Diffusions.Has(diff)
}

// CheckDevice implements the ResCheckDevice-style adjacency test: is
// diffTile a source/drain diffusion tile adjacent to gateTile's device.
// It is the predicate the flood walk (extract.go) uses to decide
// whether a diffusion tile should be captured as a "device tile"
// rather than flooded through as ordinary conductor.
func (d *DeviceTable) CheckDevice(gateTile, diffTile *tile.Tile) bool {
	if gateTile == nil || diffTile == nil {
		return false
	}
	return d.IsDiffusionOf(gateTile.Type, diffTile.Type)
}

// deviceFor returns (creating if necessary) the ResTransistor whose
// representative tile is gateTile, keyed by the tile pointer's
// identity within this one net's scratch cell (each flood operates on
// a fresh copy, so tile identity is a stable per-net device key).
func (e *Extractor) deviceFor(gateTile *tile.Tile) TransistorID {
	if id, ok := e.deviceByTile[gateTile]; ok {
		return id
	}
	id := e.net.NewTransistor(gateTile.Type, gateTile)
	e.deviceByTile[gateTile] = id
	t := e.net.Transistor(id)
	t.BBox = gateTile.Rect
	e.measureDevice(t, gateTile)
	return id
}

// measureDevice flood-fills the device's gate tiles (by plain
// same-type adjacency, since a gate is a single mask layer) to
// accumulate area/perimeter/length/width/tile-count, matching "Device
// tiles are marked SD and floodfilled to collect area/perimeter/
// length/width metrics" — applied here to the gate/channel side, the
// counterpart flood the setup phase runs before the main tile walk.
func (e *Extractor) measureDevice(t *ResTransistor, start *tile.Tile) {
	seen := map[*tile.Tile]bool{start: true}
	queue := []*tile.Tile{start}
	var area, perim int64
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		w := cur.Rect.XHi - cur.Rect.XLo
		h := cur.Rect.YHi - cur.Rect.YLo
		area += w * h
		perim += 2 * (w + h)
		t.TileCount++
		t.BBox = t.BBox.Union(cur.Rect)
		for _, nb := range allNeighbors(cur) {
			if nb.Type != start.Type || seen[nb] {
				continue
			}
			seen[nb] = true
			queue = append(queue, nb)
		}
	}
	t.Area = area
	t.Perimeter = perim
	width := t.BBox.XHi - t.BBox.XLo
	height := t.BBox.YHi - t.BBox.YLo
	if width < height {
		t.Width, t.Length = width, height
	} else {
		t.Width, t.Length = height, width
	}
}

// allNeighbors returns every tile edge-adjacent to t across all four
// sides.
func allNeighbors(t *tile.Tile) []*tile.Tile {
	var out []*tile.Tile
	out = append(out, t.NeighborsLB()...)
	out = append(out, t.NeighborsRT()...)
	out = append(out, t.NeighborsBL()...)
	out = append(out, t.NeighborsTR()...)
	return out
}

// NewSDDevice binds bp's node as one of gate's device terminals: the
// first-seen SD adjacency becomes the source, the second becomes the
// drain (§4.5 "sourceness distinguishes the first-seen SD adjacency").
// Subsequent adjacencies on the same side are ignored (multi-tile
// diffusion regions merge onto the one terminal node via ordinary
// junction/merge handling, not repeated NewSDDevice calls).
func (e *Extractor) NewSDDevice(gateTile *tile.Tile, node NodeID) {
	id := e.deviceFor(gateTile)
	t := e.net.Transistor(id)
	if !t.sourceSeen {
		t.Terminals[TermSource] = node
		t.sourceSeen = true
	} else if t.Terminals[TermDrain] == NoNode {
		t.Terminals[TermDrain] = node
	}
	// else: additional tile of an already-bound terminal; the caller's
	// junction/merge path ties it into the same node.
	nd := e.net.Node(node)
	nd.Transistors = appendUniqueTransistor(nd.Transistors, id)
}
