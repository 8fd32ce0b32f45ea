// Package analysis implements the compiler analyses of spec.md §4.E:
// CFG construction and dominance, a materialization-point scheduler,
// loop-tree recognition, use lists, free-frontier computation, and a
// call graph with SCC-based recursion detection.
//
// Grounded on the teacher's internal/elaborate/scc.go (Tarjan's
// algorithm reused here for the loop tree and call graph) and
// internal/eval_analysis's worklist-based flow analyses (shape for the
// dominator fixpoint).
package analysis

import (
	"fmt"
	"sort"

	"github.com/sunholo/shadeir/internal/ir"
)

// CFNode is one control-flow node: a BasicBlock, or the synthetic
// function entry represented by the Function node itself.
type CFNode struct {
	Block   *ir.Node // BasicBlock or Function
	idx     int
	succs   []*CFNode
	preds   []*CFNode
}

// CFG is the control-flow graph of one function, built by walking every
// reachable Jump/Branch/Switch target starting at the entry block.
// Structured terminators (If/Match/Loop/MergeSelection/MergeContinue/
// MergeBreak/TailCall/Join/Control) do not themselves appear as CFG
// edges: the CFG is only meaningful for a function still in
// unstructured Jump/Branch/Switch form, the form
// restructure/scope2control.go reads before it builds structured
// If/Match/Loop regions.
type CFG struct {
	Entry *CFNode
	nodes []*CFNode
	byID  map[uint64]*CFNode

	idom map[*CFNode]*CFNode // immediate dominator
}

// Build constructs the CFG for fn (a Function declaration), by a
// recursive depth-first walk over unstructured Jump/Branch/Switch edges.
func Build(fn *ir.Node) (*CFG, error) {
	if fn.Tag != ir.TagFunction {
		return nil, fmt.Errorf("analysis: Build requires a Function, got %s", fn.Tag)
	}
	g := &CFG{byID: make(map[uint64]*CFNode)}
	entry := g.nodeFor(fn)
	g.Entry = entry

	var visit func(block *ir.Node) error
	visited := make(map[uint64]bool)
	visit = func(block *ir.Node) error {
		if visited[block.ID()] {
			return nil
		}
		visited[block.ID()] = true
		from := g.nodeFor(block)

		_, body := bodyOf(block)
		if body == nil {
			return nil
		}
		term := body
		switch t := term.Payload.(type) {
		case ir.Jump:
			to := g.nodeFor(t.Target)
			g.addEdge(from, to)
			return visit(t.Target)
		case ir.Branch:
			tt := t.TrueJump.Payload.(ir.Jump)
			ft := t.FalseJump.Payload.(ir.Jump)
			toT := g.nodeFor(tt.Target)
			toF := g.nodeFor(ft.Target)
			g.addEdge(from, toT)
			g.addEdge(from, toF)
			if err := visit(tt.Target); err != nil {
				return err
			}
			return visit(ft.Target)
		case ir.Switch:
			for _, c := range t.Cases {
				jt := c.Jump.Payload.(ir.Jump)
				to := g.nodeFor(jt.Target)
				g.addEdge(from, to)
				if err := visit(jt.Target); err != nil {
					return err
				}
			}
			dt := t.Default.Payload.(ir.Jump)
			to := g.nodeFor(dt.Target)
			g.addEdge(from, to)
			return visit(dt.Target)
		case ir.Return, ir.Unreachable:
			return nil
		default:
			return fmt.Errorf("analysis: Build encountered structured terminator %T; only unstructured Jump/Branch/Switch bodies have a CFG", t)
		}
	}
	if err := visit(fn); err != nil {
		return nil, err
	}
	g.computeDominators()
	return g, nil
}

func bodyOf(n *ir.Node) ([]*ir.Node, *ir.Node) {
	return ir.Abstraction(n)
}

func (g *CFG) nodeFor(block *ir.Node) *CFNode {
	if n, ok := g.byID[block.ID()]; ok {
		return n
	}
	n := &CFNode{Block: block, idx: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	g.byID[block.ID()] = n
	return n
}

func (g *CFG) addEdge(from, to *CFNode) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// Successors returns n's successors in edge-insertion order.
func (n *CFNode) Successors() []*CFNode { return n.succs }

// Predecessors returns n's predecessors in edge-insertion order.
func (n *CFNode) Predecessors() []*CFNode { return n.preds }

// Nodes returns every CFNode in the graph in discovery order (entry first).
func (g *CFG) Nodes() []*CFNode { return g.nodes }

// computeDominators runs the standard iterative (Cooper/Harvey/Kennedy)
// dominator algorithm over g in reverse-postorder.
func (g *CFG) computeDominators() {
	order := g.reversePostorder()
	indexOf := make(map[*CFNode]int, len(order))
	for i, n := range order {
		indexOf[n] = i
	}
	idom := make(map[*CFNode]*CFNode, len(order))
	idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, n := range order {
			if n == g.Entry {
				continue
			}
			var newIdom *CFNode
			for _, p := range n.preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, indexOf)
			}
			if newIdom != nil && idom[n] != newIdom {
				idom[n] = newIdom
				changed = true
			}
		}
	}
	g.idom = idom
}

func intersect(a, b *CFNode, idom map[*CFNode]*CFNode, indexOf map[*CFNode]int) *CFNode {
	for a != b {
		for indexOf[a] > indexOf[b] {
			a = idom[a]
		}
		for indexOf[b] > indexOf[a] {
			b = idom[b]
		}
	}
	return a
}

func (g *CFG) reversePostorder() []*CFNode {
	visited := make(map[*CFNode]bool)
	var order []*CFNode
	var visit func(n *CFNode)
	visit = func(n *CFNode) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, s := range n.succs {
			visit(s)
		}
		order = append(order, n)
	}
	visit(g.Entry)
	// reverse in place
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// ImmediateDominator returns n's immediate dominator, or nil for the entry.
func (g *CFG) ImmediateDominator(n *CFNode) *CFNode {
	if n == g.Entry {
		return nil
	}
	return g.idom[n]
}

// Dominates reports whether a dominates b (reflexively).
func (g *CFG) Dominates(a, b *CFNode) bool {
	for c := b; c != nil; c = g.ImmediateDominator(c) {
		if c == a {
			return true
		}
		if c == g.Entry {
			break
		}
	}
	return a == g.Entry
}

// DeepestCommonDominator returns the deepest node dominating every node
// in ns, used by the scheduler to find an instruction's materialization
// point (spec.md §4.E).
func (g *CFG) DeepestCommonDominator(ns []*CFNode) *CFNode {
	if len(ns) == 0 {
		return g.Entry
	}
	cur := ns[0]
	for _, n := range ns[1:] {
		cur = g.dominatorIntersect(cur, n)
	}
	return cur
}

func (g *CFG) dominatorIntersect(a, b *CFNode) *CFNode {
	depth := func(n *CFNode) int {
		d := 0
		for c := n; c != g.Entry; c = g.ImmediateDominator(c) {
			d++
			if c == nil {
				break
			}
		}
		return d
	}
	da, db := depth(a), depth(b)
	for da > db {
		a = g.ImmediateDominator(a)
		da--
	}
	for db > da {
		b = g.ImmediateDominator(b)
		db--
	}
	for a != b {
		a = g.ImmediateDominator(a)
		b = g.ImmediateDominator(b)
	}
	return a
}

// sortedBlockIDs returns a copy of ns sorted by underlying block id,
// a deterministic iteration order. Nothing in this package calls it.
func sortedBlockIDs(ns []*CFNode) []*CFNode {
	out := make([]*CFNode, len(ns))
	copy(out, ns)
	sort.Slice(out, func(i, j int) bool { return out[i].Block.ID() < out[j].Block.ID() })
	return out
}
