package analysis

import "github.com/sunholo/shadeir/internal/ir"

// Use is one node in the per-definition use list spec.md §4.E
// describes: the using node, which block it sits in, the user's tag
// name, and a link to the next use. The exact operand field and list
// position are not recorded.
type Use struct {
	User         *ir.Node
	Block        *ir.Node // enclosing BasicBlock or Function (for entry-block users)
	OperandClass string   // the user's tag name, e.g. "Call", "Branch"
	OperandName  string   // not filled in by BuildUses/BuildModuleUses
	Index        int      // always -1: list positions are not recorded
	Next         *Use
}

// UseMap is a use-list index, definition -> its Use chain, over one
// function (BuildUses) or a whole module (BuildModuleUses).
type UseMap struct {
	heads map[*ir.Node]*Use
}

// UsesOf returns the head of def's use chain, or nil if unused.
func (m *UseMap) UsesOf(def *ir.Node) *Use { return m.heads[def] }

// BuildUses walks every reachable node from fn and records, for each
// operand reference, a Use entry against the referenced node.
// Grounded on spec.md §4.E's "linked list of uses, each carrying
// (user, operand_class, operand_name, index, next_use)".
func BuildUses(fn *ir.Node) *UseMap {
	m := &UseMap{heads: make(map[*ir.Node]*Use)}
	_, body := ir.Abstraction(fn)
	if body != nil {
		m.walkShared(fn, body, make(map[uint64]bool))
	}
	return m
}

// BuildModuleUses indexes every reachable node across the whole
// module: every Function's body plus every GlobalVariable/Constant
// initializer, sharing one visited set across all of them. A
// hash-consed node referenced from more than one declaration (spec.md
// §4.A) still gets a Use recorded against every occurrence — walking
// into a node's children only once per node never suppresses
// recording a use of that node from a second, later-visited parent,
// since record is called once per (parent, child) edge rather than
// once per child.
//
// Grounded on original_source/src/shady/analysis/uses.c's
// create_module_uses_map, which likewise indexes every declaration,
// not just functions, into one shared map; internal/analysis/callgraph.go's
// address-capture detection is the consumer that needs this
// whole-module view instead of BuildUses' per-function one.
func BuildModuleUses(m *ir.Module) *UseMap {
	mu := &UseMap{heads: make(map[*ir.Node]*Use)}
	visited := make(map[uint64]bool)
	for _, d := range m.Decls {
		mu.walkShared(d, d, visited)
	}
	return mu
}

func (m *UseMap) walkShared(block, n *ir.Node, visited map[uint64]bool) {
	if n == nil || visited[n.ID()] {
		return
	}
	visited[n.ID()] = true
	childBlock := block
	if n.Tag == ir.TagBasicBlock || n.Tag == ir.TagFunction {
		childBlock = n
	}
	for _, child := range ir.Children(n) {
		m.record(child, n, block, classOf(n), -1)
		m.walkShared(childBlock, child, visited)
	}
}

func (m *UseMap) record(def, user, block *ir.Node, class string, index int) {
	u := &Use{User: user, Block: block, OperandClass: class, Index: index, Next: m.heads[def]}
	m.heads[def] = u
}

func classOf(n *ir.Node) string { return n.Tag.String() }
