package resist

// Simplify reduces net in place by repeatedly applying, in the order
// given by §4.5, self-loop, zero-ohm, single-connection, series,
// parallel, and triangle-to-Y reductions until none apply. It never
// touches the origin node's identity (callers always find it again via
// net.Origin()) and never drops an externally-named node (ports,
// labels, device terminals survive to emission).
func Simplify(net *Network) {
	for {
		if trySelfLoopPass(net) {
			continue
		}
		if tryZeroOhmPass(net) {
			continue
		}
		if trySingleConnectionPass(net) {
			continue
		}
		if trySeriesPass(net) {
			continue
		}
		if tryParallelPass(net) {
			continue
		}
		if tryTrianglePass(net) {
			continue
		}
		return
	}
}

func reducible(net *Network, node *ResNode) bool {
	return node != nil && node.Status&StatusForward == 0 && !net.IsOrigin(node.ID) &&
		node.Name == "" && len(node.Transistors) == 0
}

func otherEnd(r *ResResistor, node NodeID) NodeID {
	if r.A == node {
		return r.B
	}
	return r.A
}

func trySelfLoopPass(net *Network) bool {
	for _, node := range net.Nodes() {
		for _, rid := range append([]ResistorID(nil), node.Resistors...) {
			r := net.Resistor(rid)
			if r != nil && r.A == r.B {
				net.removeResistor(rid)
				return true
			}
		}
	}
	return false
}

func tryZeroOhmPass(net *Network) bool {
	for _, node := range net.Nodes() {
		if net.IsOrigin(node.ID) {
			continue
		}
		for _, rid := range append([]ResistorID(nil), node.Resistors...) {
			r := net.Resistor(rid)
			if r == nil || r.A == r.B || r.Milliohms != 0 {
				continue
			}
			other := otherEnd(r, node.ID)
			net.removeResistor(rid)
			if net.IsOrigin(other) {
				_ = net.Merge(other, node.ID)
			} else {
				_ = net.Merge(node.ID, other)
			}
			return true
		}
	}
	return false
}

func trySingleConnectionPass(net *Network) bool {
	for _, node := range net.Nodes() {
		if !reducible(net, node) {
			continue
		}
		if len(node.Resistors) != 1 || len(node.Junctions) != 0 || len(node.Contacts) != 0 {
			continue
		}
		r := net.Resistor(node.Resistors[0])
		if r == nil {
			continue
		}
		far := otherEnd(r, node.ID)
		if far == node.ID {
			continue // self-loop handled above
		}
		_ = net.Merge(far, node.ID)
		return true
	}
	return false
}

func trySeriesPass(net *Network) bool {
	for _, node := range net.Nodes() {
		if !reducible(net, node) {
			continue
		}
		if len(node.Resistors) != 2 || len(node.Junctions) != 0 || len(node.Contacts) != 0 {
			continue
		}
		r1 := net.Resistor(node.Resistors[0])
		r2 := net.Resistor(node.Resistors[1])
		if r1 == nil || r2 == nil {
			continue
		}
		if r1.NoMerge || r2.NoMerge {
			continue
		}
		a := otherEnd(r1, node.ID)
		b := otherEnd(r2, node.ID)
		if a == node.ID || b == node.ID || a == b {
			continue
		}
		sum := r1.Milliohms + r2.Milliohms
		var areaToA, areaToB int64
		if sum != 0 {
			areaToA = node.Area * r2.Milliohms / sum
			areaToB = node.Area - areaToA
		}
		net.removeResistor(r1.ID)
		net.removeResistor(r2.ID)
		na, nb := net.Node(a), net.Node(b)
		na.Area += areaToA
		nb.Area += areaToB
		typ := r1.Type
		width := r1.Width
		if r2.Width < width {
			width = r2.Width
		}
		net.NewResistor(a, b, sum, r1.Length+r2.Length, width, typ)
		node.Status |= StatusForward
		node.Forward = a
		return true
	}
	return false
}

func tryParallelPass(net *Network) bool {
	seen := make(map[[2]NodeID][]ResistorID)
	for _, r := range net.liveResistors() {
		if r.A == r.B {
			continue
		}
		k := pairKey(r.A, r.B)
		seen[k] = append(seen[k], r.ID)
	}
	for pair, ids := range seen {
		if len(ids) < 2 {
			continue
		}
		r1 := net.Resistor(ids[0])
		r2 := net.Resistor(ids[1])
		if r1 == nil || r2 == nil || r1.NoMerge || r2.NoMerge {
			continue
		}
		sum := r1.Milliohms + r2.Milliohms
		var val int64
		if sum != 0 {
			val = r1.Milliohms * r2.Milliohms / sum
		}
		net.removeResistor(r1.ID)
		net.removeResistor(r2.ID)
		width := r1.Width + r2.Width
		length := r1.Length
		if r2.Length < length {
			length = r2.Length
		}
		net.NewResistor(pair[0], pair[1], val, length, width, r1.Type)
		return true
	}
	return false
}

func pairKey(a, b NodeID) [2]NodeID {
	if a < b {
		return [2]NodeID{a, b}
	}
	return [2]NodeID{b, a}
}

// tryTrianglePass looks for three resistors forming a triangle among
// three distinct nodes (A-B, B-C, C-A) and converts it to a Y with a
// fresh internal node, per §4.5 and boundary B5 (degenerate triangle,
// sum of arms zero, produces an all-zero Y without dividing by zero).
func tryTrianglePass(net *Network) bool {
	adj := make(map[NodeID][]*ResResistor)
	for _, r := range net.liveResistors() {
		if r.A == r.B {
			continue
		}
		adj[r.A] = append(adj[r.A], r)
		adj[r.B] = append(adj[r.B], r)
	}
	for a, edgesA := range adj {
		for _, rab := range edgesA {
			if rab.NoMerge {
				continue
			}
			b := otherEnd(rab, a)
			for _, rbc := range adj[b] {
				if rbc == rab || rbc.NoMerge {
					continue
				}
				c := otherEnd(rbc, b)
				if c == a || c == b {
					continue
				}
				rca := findEdge(adj[c], a)
				if rca == nil || rca.NoMerge {
					continue
				}
				convertTriangleToY(net, a, b, c, rab, rbc, rca)
				return true
			}
		}
	}
	return false
}

func findEdge(edges []*ResResistor, target NodeID) *ResResistor {
	for _, e := range edges {
		if e.A == target || e.B == target {
			return e
		}
	}
	return nil
}

func convertTriangleToY(net *Network, a, b, c NodeID, rab, rbc, rca *ResResistor) {
	sum := rab.Milliohms + rbc.Milliohms + rca.Milliohms
	var armA, armB, armC int64
	if sum != 0 {
		armA = (rab.Milliohms * rca.Milliohms) / sum
		armB = (rab.Milliohms * rbc.Milliohms) / sum
		armC = (rbc.Milliohms * rca.Milliohms) / sum
	}
	na, nb, nc := net.Node(a), net.Node(b), net.Node(c)
	cx := (na.X + nb.X + nc.X) / 3
	cy := (na.Y + nb.Y + nc.Y) / 3
	y := net.NewNode(cx, cy, "")

	net.removeResistor(rab.ID)
	net.removeResistor(rbc.ID)
	net.removeResistor(rca.ID)

	net.NewResistor(y, a, armA, 0, rab.Width, rab.Type)
	net.NewResistor(y, b, armB, 0, rab.Width, rab.Type)
	net.NewResistor(y, c, armC, 0, rab.Width, rab.Type)
}
