// Package resist implements the resistance extractor: a tile-driven
// flood/partition engine that walks a connected conductor, decomposes
// it at junctions, contacts, devices, and breakpoints, builds a
// resistor network, and simplifies it by series/parallel/triangle-to-Y
// reductions, applied until none applies; there is no tolerance
// setting.
//
// Cyclic references (ResNode<->ResResistor<->ResNode, per DESIGN
// NOTES §9) are modeled as an arena of structs plus integer handles
// rather than pointer chains, so that merging nodes is a matter of
// rewriting handles and splicing the obsolete node out via its Forward
// field instead of chasing live pointers.
package resist

import (
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// NodeID, ResistorID, etc. are arena indices into a Network. Zero is
// never a valid handle; NoNode/NoResistor/... are the zero value.
type NodeID int
type ResistorID int
type TransistorID int
type JunctionID int
type ContactID int
type BreakpointID int

const (
	NoNode       NodeID       = 0
	NoResistor   ResistorID   = 0
	NoTransistor TransistorID = 0
	NoJunction   JunctionID   = 0
	NoContact    ContactID    = 0
	NoBreakpoint BreakpointID = 0
)

// NodeStatus bits for ResNode.Status.
type NodeStatus uint8

const (
	// StatusPending marks a node still on the pending work queue.
	StatusPending NodeStatus = 1 << iota
	// StatusFinished marks a node moved to the done list.
	StatusFinished
	// StatusMarked is scratch state for graph walks (cycle/visited
	// marking during simplification).
	StatusMarked
	// StatusForward marks a node that has been merged away; Forward
	// names the surviving node it was spliced into.
	StatusForward
)

// SourceEdge bitmask: which edges of a tile originated the breakpoint
// a ResNode sits on, used by the tile-resistance calculator to orient
// local sub-network construction. Reserved for calculator input; the
// engine itself only needs to carry it through.
type SourceEdge uint8

const (
	EdgeLeft SourceEdge = 1 << iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

// ResNode is one node of the extracted resistor graph: a breakpoint
// location with incident resistors/devices/junctions/contacts and a
// running resistance bound from the flood's origin.
type ResNode struct {
	ID   NodeID
	X, Y int64

	Resistors   []ResistorID
	Transistors []TransistorID
	Junctions   []JunctionID
	Contacts    []ContactID

	// ResFromOrigin is the running lower-bound resistance from the
	// net's origin node, used to decide whether a merge must re-queue
	// a node already moved to done (§4.5 "Queue discipline").
	ResFromOrigin int64

	// Area accumulates tile area absorbed into this node by
	// node merges and series reductions, for later capacitance distribution.
	Area int64

	Status  NodeStatus
	Name    string // non-empty for externally visible nodes (ports, labels, device terminals)
	Forward NodeID // valid iff Status&StatusForward != 0
}

// ResResistor is one edge of the graph: a two-terminal linear resistor
// between two ResNodes.
type ResResistor struct {
	ID           ResistorID
	A, B         NodeID
	Milliohms    int64
	Length       int64 // centerline length, internal units
	Width        int64
	Type         tile.TileType
	NoMerge      bool // set when crossing a no-merge boundary (§4.5)
}

// RTTermCount bounds the terminal slots of a ResTransistor (gate,
// source, drain, substrate).
const RTTermCount = 4

// Terminal indices into ResTransistor.Terminals.
const (
	TermGate = iota
	TermSource
	TermDrain
	TermSubstrate
)

// ResTransistor is one device discovered during the flood: its
// terminals (bound lazily as source/drain diffusion tiles are
// visited), accumulated geometry, and a representative tile for the
// tile-resistance calculator.
type ResTransistor struct {
	ID        TransistorID
	Terminals [RTTermCount]NodeID

	Perimeter int64
	Area      int64
	Length    int64
	Width     int64
	TileCount int

	RepTile *tile.Tile
	BBox    tile.Rect
	Type    tile.TileType

	// sourceSeen tracks whether the first SD terminal bound was routed
	// to Source (true) or Drain (false is the second-seen side),
	// matching "sourceness distinguishes the first-seen SD adjacency".
	sourceSeen bool
}

// ResJunction is the shared edge between two adjoining, connecting
// tiles of different compatible types.
type ResJunction struct {
	ID       JunctionID
	TileA    *tile.Tile
	TileB    *tile.Tile
	X, Y     int64 // midpoint of the shared edge
	Node     NodeID
	Resolved bool // both sides visited
}

// ResContactPoint is a contact tile discharged into the graph: one
// ResNode shared across the contact's per-plane residue images.
type ResContactPoint struct {
	ID        ContactID
	Tile      *tile.Tile
	X, Y      int64
	Type      tile.TileType
	Planes    []tile.Plane
	Residues  []tile.TileType
	Node      NodeID
	Resolved  map[tile.Plane]bool
}

// Breakpoint is a required node location on a tile: a port bounding
// box, a label, a drive-point, or a device-edge adjacency.
type Breakpoint struct {
	ID       BreakpointID
	Tile     *tile.Tile
	X, Y     int64
	Node     NodeID
	Name     string
	FromEdge SourceEdge
	Used     bool
}

// NoMergeMask forbids series/parallel combination of resistors across
// heterogeneous TileTypes where accuracy matters; it is loaded from the
// technology file's `resistclasses` section (see techfile.go in this
// package).
type NoMergeMask struct {
	forbidden map[[2]tile.TileType]bool
}

// NewNoMergeMask creates an empty (permit-everything) mask.
func NewNoMergeMask() *NoMergeMask {
	return &NoMergeMask{forbidden: make(map[[2]tile.TileType]bool)}
}

// Forbid marks a and b (order-independent) as not mergeable.
func (m *NoMergeMask) Forbid(a, b tile.TileType) {
	m.forbidden[[2]tile.TileType{a, b}] = true
	m.forbidden[[2]tile.TileType{b, a}] = true
}

// Allowed reports whether resistors of type a and b may be combined.
func (m *NoMergeMask) Allowed(a, b tile.TileType) bool {
	if m == nil {
		return true
	}
	return !m.forbidden[[2]tile.TileType{a, b}]
}
