// Package lower implements the per-pass lowering stages of spec.md
// §4.G: continuation-passing call lowering, tail-call elimination,
// alloca demotion, stack-frame setup, pointer/mask/subgroup/memcpy/
// layout/int/fill lowering, and the miscellaneous cleanup passes
// (inlining, leaf marking, indirect-target lifting, execution-model
// and entry-point specialization) that run after internal/restructure
// has turned the module into nested If/Match/Loop form.
//
// Grounded on original_source/src/shady/passes/lower_callf.c,
// opt_demote_alloca.c and setup_stack_frames.c for the three passes
// with nontrivial dataflow (callf.go, alloca.go, stack.go); the
// remaining passes (misc.go, ptrs.go) follow the same per-function
// rewrite.Rewriter shape, grounded more thinly since the originals for
// them fill a role this IR's simpler physical/generic pointer model
// does not need in full (documented per-pass in DESIGN.md).
package lower

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// cfState is the per-function context LowerCallf threads through its
// RewriteFn: the join-point parameter a non-leaf function's Return
// nodes must invoke instead of returning directly.
type cfState struct {
	dstArena *arena.Arena
	jp       *ir.Node // current function's join-point param, nil if leaf
}

// LowerCallf rewrites every non-leaf function into continuation-
// passing form: a trailing join-point parameter replaces its implicit
// return address, Return becomes Join, and every call site targeting a
// non-leaf callee is wrapped in a Control establishing a fresh join
// point bound to a TailCall (spec.md §4.G step 1).
//
// Grounded on original_source/src/shady/passes/lower_callf.c: that
// pass's "fn_lifted" map (callee -> CPS-converted callee) and
// "call_site" rewriting correspond here to the per-function jp
// parameter and the Control/TailCall substitution performed by
// RewriteNode's memoisation when a Call is intercepted.
func LowerCallf(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	st := &cfState{dstArena: dstArena}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		switch old.Tag {
		case ir.TagFunction:
			return rewriteFunctionCPS(r, st, old)
		case ir.TagReturn:
			return rewriteReturnAsJoin(r, st, old)
		case ir.TagCall:
			return rewriteCallSite(r, st, old)
		default:
			return r.Default(old)
		}
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

func rewriteFunctionCPS(r *rewrite.Rewriter, st *cfState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(*ir.FunctionPayload)
	leaf := ir.HasAnnotation(p.Annotations, ir.AnnotationLeaf)

	savedJP := st.jp
	defer func() { st.jp = savedJP }()

	if leaf {
		st.jp = nil
		fn, err := r.RecreateDeclHeaderIdentity(old)
		if err != nil {
			return nil, err
		}
		if err := r.SetFunctionBody(fn, p.Body); err != nil {
			return nil, err
		}
		return fn, nil
	}

	nreturns, err := r.RewriteNodes(p.ReturnTypes)
	if err != nil {
		return nil, err
	}
	nparams, err := recreateParams(r, p.Params)
	if err != nil {
		return nil, err
	}
	jpTy := st.dstArena.JoinPointType(nreturns)
	jp := st.dstArena.Param(st.dstArena.QualifiedTypeHelper(jpTy, true), "return_jp", uint64(len(nparams)))

	fn := st.dstArena.NewFunction(p.Name, append(nparams, jp), nil, p.Annotations)
	r.Register(old, fn)
	r.RegisterList(p.Params, nparams)

	st.jp = jp
	if err := r.SetFunctionBody(fn, p.Body); err != nil {
		return nil, err
	}
	return fn, nil
}

func rewriteReturnAsJoin(r *rewrite.Rewriter, st *cfState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Return)
	if st.jp == nil {
		// leaf function: Return is kept as is.
		mem, err := r.RewriteNode(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := r.RewriteNodes(p.Args)
		if err != nil {
			return nil, err
		}
		return st.dstArena.Intern(ir.TagReturn, ir.Return{Mem: mem, Args: args})
	}
	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	args, err := r.RewriteNodes(p.Args)
	if err != nil {
		return nil, err
	}
	return st.dstArena.Intern(ir.TagJoin, ir.Join{Mem: mem, JP: st.jp, Args: args})
}

// rewriteCallSite intercepts a Call whose callee is a known, non-leaf
// Function and replaces it in place with a Control/TailCall pair; the
// Rewriter's memoisation makes every later reference to the old Call's
// result resolve to the new Control node automatically.
func rewriteCallSite(r *rewrite.Rewriter, st *cfState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Call)
	fa, ok := p.Callee.Payload.(ir.FnAddr)
	if !ok {
		return r.RecreateNodeIdentity(old) // indirect call: leave as is
	}
	calleeFn := fa.Fn.Payload.(*ir.FunctionPayload)
	if ir.HasAnnotation(calleeFn.Annotations, ir.AnnotationLeaf) {
		return r.RecreateNodeIdentity(old)
	}

	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	callee, err := r.RewriteNode(p.Callee)
	if err != nil {
		return nil, err
	}
	args, err := r.RewriteNodes(p.Args)
	if err != nil {
		return nil, err
	}
	returns, err := r.RewriteNodes(calleeFn.ReturnTypes)
	if err != nil {
		return nil, err
	}

	jpTy := st.dstArena.JoinPointType(returns)
	jp := st.dstArena.Param(st.dstArena.QualifiedTypeHelper(jpTy, true), "call_jp", 0)
	tc, err := st.dstArena.Intern(ir.TagTailCall, ir.TailCall{Mem: mem, Callee: callee, Args: append(append([]*ir.Node{}, args...), jp)})
	if err != nil {
		return nil, err
	}
	body := st.dstArena.NewBasicBlock([]*ir.Node{jp})
	body.Payload.(*ir.BasicBlockPayload).SetBody(tc)

	return st.dstArena.Intern(ir.TagControl, ir.Control{Mem: mem, Body: body, YieldTypes: returns})
}

func recreateParams(r *rewrite.Rewriter, olds []*ir.Node) ([]*ir.Node, error) {
	out := make([]*ir.Node, len(olds))
	for i, o := range olds {
		op := o.Payload.(ir.Param)
		nty, err := r.RewriteNode(op.QType)
		if err != nil {
			return nil, err
		}
		out[i] = r.DstArena.Param(nty, op.Name, op.Slot)
	}
	return out, nil
}

// AnalyzeCallGraph exposes analysis.BuildCallGraph to callers of this
// package (spec.md §4.G mark_leaf_functions). internal/pipeline does
// not call it, and LowerCallf runs without consulting a call graph.
func AnalyzeCallGraph(m *ir.Module) *analysis.CallGraph {
	return analysis.BuildCallGraph(m)
}
