package lower

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// OptInline inlines a Call whose callee is a direct FnAddr, has
// exactly one caller, is never called indirectly or recursively, and
// has a body that is a bare Return with no preceding instructions
// (Mem == nil) — a pure compute-from-params helper (opt_inline,
// spec.md §4.H). Splicing a callee whose body threads through Load/
// Store/Call instructions before its Return would require rebasing
// that whole Mem chain onto the call site's own Mem, which this port
// does not attempt; such callees pass through unchanged and keep
// their own Call, same as a multiply-called or recursive one would.
//
// Grounded on the teacher's aggressive-inlining posture for
// single-use bindings (internal/elaborate's let-inlining) generalized
// here from let-bindings to call sites via analysis.CallGraph.
func OptInline(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	cg := analysis.BuildCallGraph(src)

	inlinable := func(callee *ir.Node) bool {
		node := cg.Node(callee)
		if node == nil || node.IsRecursive || node.IsAddressCaptured {
			return false
		}
		if len(node.Callers) != 1 {
			return false
		}
		p := callee.Payload.(*ir.FunctionPayload)
		return p.Body != nil && p.Body.Tag == ir.TagReturn && p.Body.Payload.(ir.Return).Mem == nil
	}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagCall {
			return r.Default(old)
		}
		c := old.Payload.(ir.Call)
		fa, ok := c.Callee.Payload.(ir.FnAddr)
		if !ok || !inlinable(fa.Fn) {
			return r.Default(old)
		}

		mem, err := r.RewriteNode(c.Mem)
		if err != nil {
			return nil, err
		}
		args, err := r.RewriteNodes(c.Args)
		if err != nil {
			return nil, err
		}

		callee := fa.Fn.Payload.(*ir.FunctionPayload)
		inner := rewrite.New(src, dst, dstArena, func(ir2 *rewrite.Rewriter, n *ir.Node) (*ir.Node, error) {
			return ir2.Default(n)
		})
		inner.RegisterList(callee.Params, args)
		ret := callee.Body.Payload.(ir.Return)
		retArgs, err := inner.RewriteNodes(ret.Args)
		if err != nil {
			return nil, err
		}
		return irWrapReturn(dstArena, mem, retArgs)
	}

	rw := rewrite.New(src, dst, dstArena, process)
	for _, d := range src.Decls {
		nd, err := rw.RewriteNode(d)
		if err != nil {
			return nil, nil, err
		}
		dst.AddDecl(nd)
	}
	dst.Seal()
	return dstArena, dst, nil
}

// irWrapReturn turns an inlined callee's return values into the single
// node a Call's result would have been: the sole value when there is
// one, otherwise a composite_construct PrimOp standing in for the
// record a multi-value Call result wraps.
func irWrapReturn(a *arena.Arena, mem *ir.Node, args []*ir.Node) (*ir.Node, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return a.Intern(ir.TagPrimOp, ir.PrimOp{Op: "composite_construct", Args: args})
}
