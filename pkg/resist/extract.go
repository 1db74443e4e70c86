package resist

import (
	"fmt"

	"github.com/RTimothyEdwards/magic-core/pkg/compose"
	"github.com/RTimothyEdwards/magic-core/pkg/elog"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Port names a rectangle on the source cell that should become a named
// external node when the flood reaches it (§3 "port bounding boxes").
type Port struct {
	Name string
	Rect tile.Rect
}

// Extractor holds the technology-derived tables the flood/partition
// walk needs: connectivity, device recognition, contact residues, and
// per-type sheet resistance. One Extractor is reused across many
// ExtractNet calls; each call builds and returns its own Network.
type Extractor struct {
	Log elog.View

	// Connect augments same-type adjacency with "ResConnectWithSD"
	// style cross-type connectivity (e.g. a contact type connects to
	// each of its residues even though they're different TileTypes).
	Connect map[tile.TileType]tile.TileTypeMask

	// SheetRes gives milliohms-per-square for each conducting TileType,
	// the input to the (simplified, per spec.md §4.5 "out of scope")
	// per-tile resistance calculation this package performs: one node
	// per tile, one resistor per accepted same-plane edge, sized by
	// sheet resistance x length / width.
	SheetRes map[tile.TileType]int64

	// ContactMilliohms optionally assigns a lumped resistance to a
	// contact type's cross-plane link; types absent from the map link
	// at 0 milliohms, which Simplify's zero-ohm pass collapses away.
	ContactMilliohms map[tile.TileType]int64

	Devices   *DeviceTable
	Residues  *compose.Table
	NoMerge   *NoMergeMask

	deviceByTile map[*tile.Tile]TransistorID
}

type locKey struct {
	plane tile.Plane
	t     *tile.Tile
}

// ExtractNet floods the connected conductor starting at (x,y) on
// startPlane within cell, builds a resistor network, attaches any
// ports/labels that land on the flooded geometry, and returns the
// unsimplified Network. Call Simplify on the result to reduce it.
func (e *Extractor) ExtractNet(cell *tile.CellDef, startPlane tile.Plane, x, y int64, startName string, ports []Port) (*Network, error) {
	p := cell.Plane(startPlane)
	if p == nil {
		return nil, ErrNoStartTile
	}
	start := p.PointTile(x, y)
	if start == nil || start.Type == tile.Space {
		return nil, ErrNoStartTile
	}

	e.deviceByTile = make(map[*tile.Tile]TransistorID)
	net := NewNetwork(e.NoMerge)
	nodeOf := make(map[locKey]NodeID)
	expanded := make(map[locKey]bool)
	edgeSeen := make(map[[2]locKey]bool)

	startKey := locKey{startPlane, start}
	cx, cy := center(start.Rect)
	nodeOf[startKey] = net.NewNode(cx, cy, startName)
	net.NewBreakpoint(start, x, y, nodeOf[startKey], startName, 0)

	getNode := func(k locKey) NodeID {
		if id, ok := nodeOf[k]; ok {
			return id
		}
		px, py := center(k.t.Rect)
		id := net.NewNode(px, py, "")
		nodeOf[k] = id
		return id
	}

	queue := []locKey{startKey}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if expanded[cur] {
			continue
		}
		expanded[cur] = true
		curNode := getNode(cur)

		if e.isContact(cur.t.Type) {
			e.dischargeContact(net, cell, cur, curNode, getNode, &queue, expanded)
		}

		for _, nb := range allNeighbors(cur.t) {
			if nb.Type == tile.Space {
				continue
			}
			nk := locKey{cur.plane, nb}

			if e.Devices != nil && e.Devices.CheckDevice(cur.t, nb) {
				diffNode := getNode(nk)
				e.NewSDDevice(cur.t, diffNode)
				if !expanded[nk] {
					queue = append(queue, nk)
				}
				continue
			}
			if e.Devices != nil && e.Devices.CheckDevice(nb, cur.t) {
				diffNode := curNode
				e.NewSDDevice(nb, diffNode)
				// cur.t is itself the diffusion tile; still conducts,
				// already being expanded normally.
			}

			if !e.connects(cur.t.Type, nb.Type) {
				continue
			}
			ek := edgeKey(cur, nk)
			if edgeSeen[ek] {
				if !expanded[nk] {
					queue = append(queue, nk)
				}
				continue
			}
			edgeSeen[ek] = true
			nbNode := getNode(nk)
			e.addEdgeResistor(net, cur.t, nb, curNode, nbNode)
			if !expanded[nk] {
				queue = append(queue, nk)
			}
		}
	}

	e.attachPorts(net, nodeOf, ports)
	e.attachLabels(net, cell, nodeOf)

	return net, nil
}

// edgeKey returns an order-independent key for the unordered pair of
// tile locations (a,b), so an edge discovered from either side maps to
// the same map slot.
func edgeKey(a, b locKey) [2]locKey {
	if fmt.Sprintf("%p", a.t) < fmt.Sprintf("%p", b.t) || (a.t == b.t && a.plane < b.plane) {
		return [2]locKey{a, b}
	}
	return [2]locKey{b, a}
}

func (e *Extractor) isContact(typ tile.TileType) bool {
	if e.Residues == nil {
		return false
	}
	return len(e.Residues.Residues(typ)) > 0
}

func (e *Extractor) connects(have, arg tile.TileType) bool {
	if have == arg {
		return true
	}
	if mask, ok := e.Connect[have]; ok && mask.Has(arg) {
		return true
	}
	if mask, ok := e.Connect[arg]; ok && mask.Has(have) {
		return true
	}
	if e.Residues != nil {
		for _, r := range e.Residues.Residues(have) {
			if r.Type == arg {
				return true
			}
		}
		for _, r := range e.Residues.Residues(arg) {
			if r.Type == have {
				return true
			}
		}
	}
	return false
}

// dischargeContact implements "Discharge all pre-registered contacts
// on this tile: each contact becomes a ResNode shared across its
// per-plane images" (§4.5 step 3): for every residue plane of the
// contact type, find the tile occupying the contact's footprint on
// that plane and link it to the contact's node with a (typically
// zero-ohm) resistor, continuing the flood onto that plane.
func (e *Extractor) dischargeContact(net *Network, cell *tile.CellDef, cur locKey, curNode NodeID, getNode func(locKey) NodeID, queue *[]locKey, expanded map[locKey]bool) {
	net.NewContact(cur.t, cur.t.XLo, cur.t.YLo, cur.t.Type, curNode)
	for _, res := range e.Residues.Residues(cur.t.Type) {
		if res.Plane == cur.plane {
			continue
		}
		op := cell.Plane(res.Plane)
		if op == nil {
			continue
		}
		cx, cy := center(cur.t.Rect)
		other := op.PointTile(cx, cy)
		if other == nil || other.Type == tile.Space {
			continue
		}
		ok := locKey{res.Plane, other}
		milliohms := e.ContactMilliohms[cur.t.Type]
		otherNode := getNode(ok)
		net.NewResistor(curNode, otherNode, milliohms, 0, 0, cur.t.Type)
		if !expanded[ok] {
			*queue = append(*queue, ok)
		}
	}
}

func (e *Extractor) addEdgeResistor(net *Network, a, b *tile.Tile, na, nb NodeID) {
	ax, ay := center(a.Rect)
	bx, by := center(b.Rect)
	length := absInt64(ax-bx) + absInt64(ay-by)
	if length == 0 {
		length = 1
	}
	width := minInt64(tileWidth(a), tileWidth(b))
	if width <= 0 {
		width = 1
	}
	sheet := e.SheetRes[a.Type]
	milliohms := sheet * length / width
	r := net.NewResistor(na, nb, milliohms, length, width, a.Type)
	if e.NoMerge != nil {
		net.Resistor(r).NoMerge = !e.NoMerge.Allowed(a.Type, b.Type)
	}
}

func (e *Extractor) attachPorts(net *Network, nodeOf map[locKey]NodeID, ports []Port) {
	for _, port := range ports {
		for k, id := range nodeOf {
			if k.t.Rect.Overlaps(port.Rect) {
				node := net.Node(id)
				if node.Name == "" {
					node.Name = port.Name
				}
				net.NewBreakpoint(k.t, port.Rect.XLo, port.Rect.YLo, id, port.Name, 0)
			}
		}
	}
}

func (e *Extractor) attachLabels(net *Network, cell *tile.CellDef, nodeOf map[locKey]NodeID) {
	for _, lbl := range cell.Labels {
		for k, id := range nodeOf {
			if k.t.Type != lbl.Type {
				continue
			}
			if !k.t.Rect.Overlaps(lbl.Rect) {
				continue
			}
			node := net.Node(id)
			if node.Name == "" {
				node.Name = lbl.Text
			}
			net.NewBreakpoint(k.t, lbl.Rect.XLo, lbl.Rect.YLo, id, lbl.Text, 0)
		}
	}
}

func center(r tile.Rect) (int64, int64) { return (r.XLo + r.XHi) / 2, (r.YLo + r.YHi) / 2 }

func tileWidth(t *tile.Tile) int64 {
	dx := t.Rect.XHi - t.Rect.XLo
	dy := t.Rect.YHi - t.Rect.YLo
	return minInt64(dx, dy)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
