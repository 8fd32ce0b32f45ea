package analysis

// IsReducible reports whether g's CFG is reducible: every back edge
// (an edge whose target dominates its source) is the only kind of
// cycle present, i.e. every cycle in g has a single entry point that
// dominates the rest of the cycle.
//
// Grounded on the teacher's internal/link/topo.go DFS-with-inPath
// cycle detector, extended here to additionally check, for every
// cycle edge found, that the target dominates the source (a
// reducibility test rather than a bare cycle test) — the restructurer
// (internal/restructure) uses this to decide whether to proceed or
// fail with diag.Irreducible per spec.md §4.F / §8 scenario 6.
func IsReducible(g *CFG) bool {
	inPath := make(map[*CFNode]bool)
	visited := make(map[*CFNode]bool)
	reducible := true

	var visit func(n *CFNode)
	visit = func(n *CFNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		inPath[n] = true
		for _, s := range n.succs {
			if inPath[s] {
				// back edge: reducible only if s dominates n.
				if !g.Dominates(s, n) {
					reducible = false
				}
				continue
			}
			visit(s)
		}
		inPath[n] = false
	}
	visit(g.Entry)
	return reducible
}

// IrreducibleEdges returns every cycle-forming edge (src, dst) whose
// dst does not dominate src — the concrete witnesses a diagnostic can
// report alongside diag.Irreducible.
func IrreducibleEdges(g *CFG) [][2]*CFNode {
	inPath := make(map[*CFNode]bool)
	visited := make(map[*CFNode]bool)
	var bad [][2]*CFNode

	var visit func(n *CFNode)
	visit = func(n *CFNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		inPath[n] = true
		for _, s := range n.succs {
			if inPath[s] {
				if !g.Dominates(s, n) {
					bad = append(bad, [2]*CFNode{n, s})
				}
				continue
			}
			visit(s)
		}
		inPath[n] = false
	}
	visit(g.Entry)
	return bad
}
