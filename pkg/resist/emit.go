package resist

import (
	"fmt"
	"io"
)

// EmitMode names the two extracted-net output formats, matching the
// original's ResPrintFile ("text", the plain rnode/fet/resist records
// of §6.3) versus ResPrintFastHenry (3D segment geometry for a field
// solver). No function takes an EmitMode; callers pick a format by
// calling EmitText or EmitFastHenry.
type EmitMode int

const (
	EmitTextMode EmitMode = iota
	EmitFastHenryMode
)

// NodeName returns node's display name: its own Name if externally
// visible, else a generated "n<id>" matching the original's synthetic
// internal-node naming.
func NodeName(node *ResNode) string {
	if node.Name != "" {
		return node.Name
	}
	return fmt.Sprintf("n%d", node.ID)
}

// CapPerArea converts a node's absorbed area (internal units^2) to
// femtofarads at the given capacitance-per-area (aF per square
// internal-unit, kept as an integer to match the rest of the engine's
// fixed-point convention); 0 is a legitimate "no capacitance model
// configured" default.
func CapPerArea(node *ResNode, attoFaradsPerSquare int64) int64 {
	return node.Area * attoFaradsPerSquare / 1000
}

// EmitText writes net in the killnode/rnode/fet/resist text format of
// §6.3. A killnode record is written first for each node that existed
// under an old name before simplification merged it away; EmitText
// collects these itself from every forwarded ResNode that still
// carries a name.
func EmitText(w io.Writer, net *Network, attoFaradsPerSquare int64) error {
	for _, killed := range killedNames(net) {
		if _, err := fmt.Fprintf(w, "killnode %q\n", killed); err != nil {
			return err
		}
	}
	for _, node := range net.Nodes() {
		capFf := CapPerArea(node, attoFaradsPerSquare)
		typ := nodeType(net, node)
		if _, err := fmt.Fprintf(w, "rnode %q 0 %d %d %d %d\n", NodeName(node), capFf, node.X, node.Y, typ); err != nil {
			return err
		}
	}
	for _, t := range net.Transistors() {
		gate := terminalName(net, t.Terminals[TermGate])
		source := terminalName(net, t.Terminals[TermSource])
		drain := terminalName(net, t.Terminals[TermDrain])
		sub := terminalName(net, t.Terminals[TermSubstrate])
		if _, err := fmt.Fprintf(w, "fet %s %d %d %d %d %d %d %s\n",
			deviceName(t), t.BBox.XLo, t.BBox.YLo, t.BBox.XHi, t.BBox.YHi, t.Area, t.Perimeter, sub); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    %q    %d %d\n", gate, t.Length*2, 0); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    %q  %d   %d\n", source, t.Width, 0); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    %q  %d   %d\n", drain, t.Width, 0); err != nil {
			return err
		}
	}
	for _, r := range net.liveResistors() {
		if r.A == r.B {
			continue
		}
		a := NodeName(net.Node(r.A))
		b := NodeName(net.Node(r.B))
		if _, err := fmt.Fprintf(w, "resist %q %q %d\n", a, b, r.Milliohms); err != nil {
			return err
		}
	}
	return nil
}

// nodeType reports the TileType of any surviving resistor incident on
// node, the closest analogue to the original's per-node "type" field
// once simplification has erased a node's own tile identity; nodes
// with no surviving resistor (isolated contacts/devices) report 0.
func nodeType(net *Network, node *ResNode) int {
	for _, rid := range node.Resistors {
		if r := net.Resistor(rid); r != nil {
			return int(r.Type)
		}
	}
	return 0
}

func terminalName(net *Network, id NodeID) string {
	n := net.Node(id)
	if n == nil {
		return ""
	}
	return NodeName(n)
}

func deviceName(t *ResTransistor) string {
	return fmt.Sprintf("t%d", t.ID)
}

func killedNames(net *Network) []string {
	var out []string
	for _, node := range net.nodes {
		if node.Status&StatusForward != 0 && node.Name != "" {
			out = append(out, node.Name)
		}
	}
	return out
}

// FastHenryUnits names the length unit FastHenry geometry is emitted
// in; the extractor always reports coordinates in this unit per
// segment record.
const FastHenryUnits = "um"

// EmitFastHenry writes net as FastHenry 3D segment geometry: a units
// line, one ground-plane (Gsub) reference, then one Nname node record
// per node and one Ek segment record per surviving resistor. Each
// segment's w and h are both the resistor's Width. zLayer only sets
// each node's z, from the TileType of one of its surviving resistors
// (0 when zLayer is nil or has no entry, which FastHenry treats as a
// single default layer).
func EmitFastHenry(w io.Writer, net *Network, zLayer map[interface{}]int64) error {
	if _, err := fmt.Fprintf(w, ".Units %s\n", FastHenryUnits); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Gsub z=0 rho=0\n"); err != nil {
		return err
	}
	for _, node := range net.Nodes() {
		z := int64(0)
		if zLayer != nil {
			// height lookup keyed by whichever TileType the node's
			// surviving resistors carry; nodes with none stay at z=0.
			for _, rid := range node.Resistors {
				if r := net.Resistor(rid); r != nil {
					if h, ok := zLayer[r.Type]; ok {
						z = h
						break
					}
				}
			}
		}
		if _, err := fmt.Fprintf(w, "N%s x=%d y=%d z=%d\n", NodeName(node), node.X, node.Y, z); err != nil {
			return err
		}
	}
	for _, r := range net.liveResistors() {
		if r.A == r.B {
			continue
		}
		a := NodeName(net.Node(r.A))
		b := NodeName(net.Node(r.B))
		if _, err := fmt.Fprintf(w, "E%s_%s N%s N%s w=%d h=%d\n", a, b, a, b, r.Width, r.Width); err != nil {
			return err
		}
	}
	return nil
}
