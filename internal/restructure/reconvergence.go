package restructure

import "github.com/sunholo/shadeir/internal/analysis"

// reconvergence.go implements the merge-point heuristics scope2control
// needs to decide where a structured If/Match/Loop's Tail sits: the
// CFG carries no explicit post-dominance information, so the point a
// divergent region reconverges at is found by reachability instead —
// the earliest block, in reverse-postorder, that every arm can reach.
//
// Grounded on spec.md §4.F's reconvergence_heuristics step; the
// reachability-intersection formulation mirrors the teacher's
// internal/link/topo.go style of deciding graph properties from plain
// forward traversals rather than a dedicated dominance-frontier pass.

// rpoOrder returns g's nodes in reverse postorder (entry first), used
// to break ties when several candidate blocks are reachable from every
// arm of a divergent region: the earliest one in program order is the
// true convergence point in a reducible CFG.
func rpoOrder(g *analysis.CFG) []*analysis.CFNode {
	visited := make(map[*analysis.CFNode]bool)
	var order []*analysis.CFNode
	var visit func(n *analysis.CFNode)
	visit = func(n *analysis.CFNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, s := range n.Successors() {
			visit(s)
		}
		order = append(order, n)
	}
	visit(g.Entry)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func rpoIndexOf(order []*analysis.CFNode) map[*analysis.CFNode]int {
	idx := make(map[*analysis.CFNode]int, len(order))
	for i, n := range order {
		idx[n] = i
	}
	return idx
}

// reachableFrom returns every node reachable from start, start included.
func reachableFrom(start *analysis.CFNode) map[*analysis.CFNode]bool {
	seen := map[*analysis.CFNode]bool{start: true}
	stack := []*analysis.CFNode{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Successors() {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// findMerge returns the earliest node (by rpo index) reachable from
// every one of starts, or ok=false if the arms never reconverge (both
// diverge into Return/Unreachable/loop-exit terminators independently).
func findMerge(idx map[*analysis.CFNode]int, starts ...*analysis.CFNode) (*analysis.CFNode, bool) {
	if len(starts) == 0 {
		return nil, false
	}
	common := reachableFrom(starts[0])
	for _, s := range starts[1:] {
		r := reachableFrom(s)
		for n := range common {
			if !r[n] {
				delete(common, n)
			}
		}
	}
	var best *analysis.CFNode
	bestIdx := -1
	for n := range common {
		if i, ok := idx[n]; ok && (best == nil || i < bestIdx) {
			best, bestIdx = n, i
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
