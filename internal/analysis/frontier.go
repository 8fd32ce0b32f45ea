package analysis

import "github.com/sunholo/shadeir/internal/ir"

// FreeFrontier computes the set of values defined outside block but
// used within it (and within any nested structured region rooted at
// block), per spec.md §4.E. This is the operand set a restructuring
// pass must thread explicitly when it turns an implicit-dominance
// reference into an explicit BasicBlock/join-point parameter (e.g.
// lift_everything, scope2control).
//
// Grounded on the teacher's internal/eval_analysis free-variable
// computation over Core ANF closures, generalized from lambda capture
// to basic-block capture.
func FreeFrontier(block *ir.Node) []*ir.Node {
	defined := make(map[uint64]bool)
	var order []*ir.Node
	seenFree := make(map[uint64]bool)
	visited := make(map[uint64]bool)

	params, body := ir.Abstraction(block)
	for _, p := range params {
		defined[p.ID()] = true
	}

	var markDefined func(n *ir.Node)
	markDefined = func(n *ir.Node) {
		if n == nil {
			return
		}
		defined[n.ID()] = true
	}

	var walk func(n *ir.Node)
	walk = func(n *ir.Node) {
		if n == nil || visited[n.ID()] {
			return
		}
		visited[n.ID()] = true

		// Any instruction/value node is itself a definition visible to
		// later siblings in the same body (the mem chain and operand
		// graph together establish a total order within one block).
		if n.Tag.Category() == ir.CatInstruction || n.Tag.Category() == ir.CatValue {
			markDefined(n)
		}

		for _, child := range ir.Children(n) {
			if (child.Tag.Category() == ir.CatValue || child.Tag.Category() == ir.CatInstruction) &&
				!defined[child.ID()] {
				if !seenFree[child.ID()] {
					seenFree[child.ID()] = true
					order = append(order, child)
				}
			}
			if child.Tag == ir.TagBasicBlock {
				// nested abstractions (If/Loop bodies) introduce their own
				// params as definitions local to that nested scope; recurse
				// with those additionally marked defined.
				nparams, _ := ir.Abstraction(child)
				for _, p := range nparams {
					markDefined(p)
				}
			}
			walk(child)
		}
	}
	if body != nil {
		walk(body)
	}
	return order
}
