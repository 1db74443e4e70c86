package resist

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// ErrNoStartTile is returned when the flood's start point does not
// land on any tile of the source cell's planes (§4.5 "missing start
// tile fails the net").
var ErrNoStartTile = fmt.Errorf("resist: no start tile at flood origin")

// ErrInconsistentJunction is the error Merge returns when either node
// handle does not resolve to a node. It carries a stack trace captured
// where it is created. No other check in the extractor returns it; in
// particular, junction tiles are not checked for being DONE on both
// sides with no bound node.
type ErrInconsistentJunction struct {
	inner error
}

func (e *ErrInconsistentJunction) Error() string { return e.inner.Error() }
func (e *ErrInconsistentJunction) Unwrap() error  { return e.inner }

func newInconsistentJunction(format string, args ...interface{}) error {
	return &ErrInconsistentJunction{inner: errors.Errorf("resist: inconsistent junction: "+format, args...)}
}

// Network is the arena owning one net's extraction scratch state: all
// nodes, resistors, transistors, junctions, contacts, and breakpoints
// discovered so far, plus the pending/done work queues. ExtractNet
// builds a fresh Network for each net and returns it; no state is
// shared with the next call.
type Network struct {
	NoMerge *NoMergeMask

	nodes       []*ResNode
	resistors   []*ResResistor
	transistors []*ResTransistor
	junctions   []*ResJunction
	contacts    []*ResContactPoint
	breakpoints []*Breakpoint

	// pending/done are FIFOs of NodeID, modeling the intrusive
	// doubly-linked queues of §4.5/§9 as index slices: a node leaves
	// pending only when every incident junction/contact it owns binds
	// to an already-DONE tile.
	pending []NodeID
	done    []NodeID

	origin NodeID
}

// NewNetwork creates an empty arena.
func NewNetwork(noMerge *NoMergeMask) *Network {
	return &Network{NoMerge: noMerge}
}

// NewNode allocates a fresh ResNode at (x,y), marks it pending, and
// returns its handle. The first node ever created by a Network becomes
// its origin.
func (n *Network) NewNode(x, y int64, name string) NodeID {
	id := NodeID(len(n.nodes) + 1)
	node := &ResNode{ID: id, X: x, Y: y, Name: name, Status: StatusPending}
	n.nodes = append(n.nodes, node)
	n.pending = append(n.pending, id)
	if n.origin == NoNode {
		n.origin = id
	}
	return id
}

// Node dereferences a handle, following Forward splices transparently
// so callers never observe a merged-away node.
func (n *Network) Node(id NodeID) *ResNode {
	for {
		if id == NoNode || int(id) > len(n.nodes) {
			return nil
		}
		node := n.nodes[id-1]
		if node.Status&StatusForward == 0 {
			return node
		}
		id = node.Forward
	}
}

// Origin returns the net's starting node.
func (n *Network) Origin() NodeID { return n.origin }

// IsOrigin reports whether id (after following forwards) is the net's
// origin.
func (n *Network) IsOrigin(id NodeID) bool {
	node := n.Node(id)
	return node != nil && node.ID == n.Node(n.origin).ID
}

// NewResistor allocates a resistor between a and b with the given
// value/geometry and wires it into both endpoints' incident lists.
func (n *Network) NewResistor(a, b NodeID, milliohms, length, width int64, typ tile.TileType) ResistorID {
	id := ResistorID(len(n.resistors) + 1)
	r := &ResResistor{ID: id, A: a, B: b, Milliohms: milliohms, Length: length, Width: width, Type: typ}
	n.resistors = append(n.resistors, r)
	na, nb := n.Node(a), n.Node(b)
	na.Resistors = append(na.Resistors, id)
	if a != b {
		nb.Resistors = append(nb.Resistors, id)
	}
	return id
}

// Resistor dereferences a resistor handle.
func (n *Network) Resistor(id ResistorID) *ResResistor {
	if id == NoResistor || int(id) > len(n.resistors) {
		return nil
	}
	return n.resistors[id-1]
}

// NewTransistor allocates a device record.
func (n *Network) NewTransistor(typ tile.TileType, rep *tile.Tile) TransistorID {
	id := TransistorID(len(n.transistors) + 1)
	n.transistors = append(n.transistors, &ResTransistor{ID: id, Type: typ, RepTile: rep})
	return id
}

// Transistor dereferences a device handle.
func (n *Network) Transistor(id TransistorID) *ResTransistor {
	if id == NoTransistor || int(id) > len(n.transistors) {
		return nil
	}
	return n.transistors[id-1]
}

// NewJunction allocates a junction between two tiles at (x,y), owned
// by node.
func (n *Network) NewJunction(a, b *tile.Tile, x, y int64, node NodeID) JunctionID {
	id := JunctionID(len(n.junctions) + 1)
	n.junctions = append(n.junctions, &ResJunction{ID: id, TileA: a, TileB: b, X: x, Y: y, Node: node})
	n.Node(node).Junctions = append(n.Node(node).Junctions, id)
	return id
}

// Junction dereferences a junction handle.
func (n *Network) Junction(id JunctionID) *ResJunction {
	if id == NoJunction || int(id) > len(n.junctions) {
		return nil
	}
	return n.junctions[id-1]
}

// NewContact allocates a contact point owned by node.
func (n *Network) NewContact(t *tile.Tile, x, y int64, typ tile.TileType, node NodeID) ContactID {
	id := ContactID(len(n.contacts) + 1)
	n.contacts = append(n.contacts, &ResContactPoint{ID: id, Tile: t, X: x, Y: y, Type: typ, Node: node, Resolved: make(map[tile.Plane]bool)})
	n.Node(node).Contacts = append(n.Node(node).Contacts, id)
	return id
}

// Contact dereferences a contact handle.
func (n *Network) Contact(id ContactID) *ResContactPoint {
	if id == NoContact || int(id) > len(n.contacts) {
		return nil
	}
	return n.contacts[id-1]
}

// NewBreakpoint allocates a breakpoint on t, bound to node.
func (n *Network) NewBreakpoint(t *tile.Tile, x, y int64, node NodeID, name string, edge SourceEdge) BreakpointID {
	id := BreakpointID(len(n.breakpoints) + 1)
	n.breakpoints = append(n.breakpoints, &Breakpoint{ID: id, Tile: t, X: x, Y: y, Node: node, Name: name, FromEdge: edge})
	return id
}

// Breakpoints returns every breakpoint registered on the network,
// emission's source of external node names.
func (n *Network) Breakpoints() []*Breakpoint { return n.breakpoints }

// Nodes returns every live (non-forwarded) node, in creation order.
func (n *Network) Nodes() []*ResNode {
	var out []*ResNode
	for _, node := range n.nodes {
		if node.Status&StatusForward == 0 {
			out = append(out, node)
		}
	}
	return out
}

// Resistors returns the network's resistor arena. Removed resistors
// stay in it as nil entries (liveResistors skips them).
func (n *Network) Resistors() []*ResResistor { return n.resistors }

// Transistors returns every device in the network.
func (n *Network) Transistors() []*ResTransistor { return n.transistors }

// PopPending removes and returns the next pending node eligible to
// move to done: every incident junction and contact it owns must be
// Resolved (bound on a DONE tile). tileDone reports whether a tile is
// DONE. If no node is currently eligible, ok is false (more flooding
// is needed before anything can retire).
func (n *Network) PopPending(tileDone func(*tile.Tile) bool) (id NodeID, ok bool) {
	for i, candidate := range n.pending {
		node := n.Node(candidate)
		if node == nil || node.Status&StatusForward != 0 {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			return n.PopPending(tileDone)
		}
		if n.nodeReady(node, tileDone) {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			node.Status = node.Status &^ StatusPending
			node.Status |= StatusFinished
			n.done = append(n.done, node.ID)
			return node.ID, true
		}
	}
	return NoNode, false
}

func (n *Network) nodeReady(node *ResNode, tileDone func(*tile.Tile) bool) bool {
	for _, jid := range node.Junctions {
		j := n.Junction(jid)
		if j == nil {
			continue
		}
		if !tileDone(j.TileA) || !tileDone(j.TileB) {
			return false
		}
	}
	for _, cid := range node.Contacts {
		c := n.Contact(cid)
		if c == nil {
			continue
		}
		if !tileDone(c.Tile) {
			return false
		}
	}
	return true
}

// Requeue moves id back onto the pending queue (its resistance bound
// decreased during a merge discovered from the other side of a
// junction).
func (n *Network) Requeue(id NodeID) {
	node := n.Node(id)
	if node == nil || node.Status&StatusForward != 0 {
		return
	}
	if node.Status&StatusPending != 0 {
		return
	}
	for i, d := range n.done {
		if d == node.ID {
			n.done = append(n.done[:i], n.done[i+1:]...)
			break
		}
	}
	node.Status = node.Status &^ StatusFinished
	node.Status |= StatusPending
	n.pending = append(n.pending, node.ID)
}

// PendingEmpty reports whether the pending queue has drained.
func (n *Network) PendingEmpty() bool { return len(n.pending) == 0 }

// Merge combines "from" into "into": every incident resistor, device,
// junction and contact reference to "from" is rewritten to "into",
// "from" is spliced out via a Forward pointer, and "from"'s absorbed
// area is transferred. If the merge creates a self-loop resistor (a
// resistor now pointing from into to into) it is left for Simplify's
// self-loop pass to collapse.
func (n *Network) Merge(into, from NodeID) error {
	if into == from {
		return nil
	}
	dst := n.Node(into)
	src := n.Node(from)
	if dst == nil || src == nil {
		return newInconsistentJunction("merge of unknown node %d<-%d", into, from)
	}

	for _, rid := range src.Resistors {
		r := n.Resistor(rid)
		if r == nil {
			continue
		}
		if r.A == src.ID {
			r.A = dst.ID
		}
		if r.B == src.ID {
			r.B = dst.ID
		}
		dst.Resistors = appendUniqueResistor(dst.Resistors, rid)
	}
	for _, tid := range src.Transistors {
		t := n.Transistor(tid)
		if t == nil {
			continue
		}
		for i, term := range t.Terminals {
			if term == src.ID {
				t.Terminals[i] = dst.ID
			}
		}
		dst.Transistors = appendUniqueTransistor(dst.Transistors, tid)
	}
	for _, jid := range src.Junctions {
		j := n.Junction(jid)
		if j != nil {
			j.Node = dst.ID
		}
		dst.Junctions = appendUniqueJunction(dst.Junctions, jid)
	}
	for _, cid := range src.Contacts {
		c := n.Contact(cid)
		if c != nil {
			c.Node = dst.ID
		}
		dst.Contacts = appendUniqueContact(dst.Contacts, cid)
	}
	for _, bp := range n.breakpoints {
		if bp.Node == src.ID {
			bp.Node = dst.ID
		}
	}

	dst.Area += src.Area
	if src.ResFromOrigin < dst.ResFromOrigin {
		dst.ResFromOrigin = src.ResFromOrigin
	}
	if src.Name != "" && dst.Name == "" {
		dst.Name = src.Name
	}

	src.Status |= StatusForward
	src.Forward = dst.ID
	src.Resistors, src.Transistors, src.Junctions, src.Contacts = nil, nil, nil, nil

	// remove src from whichever queue it sat in
	n.removeFromQueue(&n.pending, src.ID)
	n.removeFromQueue(&n.done, src.ID)

	if dst.Status&StatusFinished != 0 && src.Status&StatusPending != 0 {
		n.Requeue(dst.ID)
	}
	return nil
}

func (n *Network) removeFromQueue(q *[]NodeID, id NodeID) {
	for i, x := range *q {
		if x == id {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return
		}
	}
}

func appendUniqueResistor(s []ResistorID, id ResistorID) []ResistorID {
	for _, x := range s {
		if x == id {
			return s
		}
	}
	return append(s, id)
}

func appendUniqueTransistor(s []TransistorID, id TransistorID) []TransistorID {
	for _, x := range s {
		if x == id {
			return s
		}
	}
	return append(s, id)
}

func appendUniqueJunction(s []JunctionID, id JunctionID) []JunctionID {
	for _, x := range s {
		if x == id {
			return s
		}
	}
	return append(s, id)
}

func appendUniqueContact(s []ContactID, id ContactID) []ContactID {
	for _, x := range s {
		if x == id {
			return s
		}
	}
	return append(s, id)
}

// removeResistor deletes r from the network's resistor list and from
// both endpoints' incident lists, without touching the nodes
// themselves.
func (n *Network) removeResistor(id ResistorID) {
	r := n.Resistor(id)
	if r == nil {
		return
	}
	if a := n.Node(r.A); a != nil {
		n.removeIncidentResistor(a, id)
	}
	if r.B != r.A {
		if b := n.Node(r.B); b != nil {
			n.removeIncidentResistor(b, id)
		}
	}
	for i, rr := range n.resistors {
		if rr != nil && rr.ID == id {
			n.resistors[i] = nil
		}
	}
}

func (n *Network) removeIncidentResistor(node *ResNode, id ResistorID) {
	for i, rid := range node.Resistors {
		if rid == id {
			node.Resistors = append(node.Resistors[:i], node.Resistors[i+1:]...)
			return
		}
	}
}

// liveResistors returns every non-deleted resistor.
func (n *Network) liveResistors() []*ResResistor {
	var out []*ResResistor
	for _, r := range n.resistors {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
