package lower

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// MarkLeafFunctions annotates every Function that makes no direct or
// indirect call (mark_leaf_functions, spec.md §4.G) with
// ir.AnnotationLeaf, so LowerCallf can skip the CPS conversion its
// join-point machinery would otherwise impose on every function
// uniformly. A function already annotated Leaf by the front end is
// left as is; one that calls indirectly (through a Call whose Callee
// is not a known FnAddr) is conservatively never marked, since its
// true callees — and therefore whether any of them themselves need a
// continuation — cannot be determined here.
//
// Grounded on the analysis.CallGraph this port already builds for
// recursion detection (internal/analysis/callgraph.go); a leaf
// function is simply one whose CGNode has no Callees and does not
// call indirectly.
func MarkLeafFunctions(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	cg := analysis.BuildCallGraph(src)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagFunction {
			return r.Default(old)
		}
		p := old.Payload.(*ir.FunctionPayload)
		ann := p.Annotations
		if node := cg.Node(old); node != nil && !node.CallsIndirect && len(node.Callees) == 0 && !ir.HasAnnotation(ann, ir.AnnotationLeaf) {
			ann = append(append([]ir.Annotation{}, ann...), ir.Annotation{Kind: ir.AnnotationLeaf})
		}
		nparams, err := recreateParams(r, p.Params)
		if err != nil {
			return nil, err
		}
		nreturns, err := r.RewriteNodes(p.ReturnTypes)
		if err != nil {
			return nil, err
		}
		fn := dstArena.NewFunction(p.Name, nparams, nreturns, ann)
		r.Register(old, fn)
		r.RegisterList(p.Params, nparams)
		if err := r.SetFunctionBody(fn, p.Body); err != nil {
			return nil, err
		}
		return fn, nil
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

// SpecializeEntryPoint prunes the module down to one chosen entry
// point and every Function transitively reachable from it
// (specialize_entry_point, spec.md §4.G), dropping every other
// EntryPoint-annotated Function so the emitter only ever sees the one
// shader stage it was invoked to compile. A GlobalVariable, Constant
// or NominalType declaration is always kept: this port has no
// unused-global elimination pass, so dead data declarations are left
// for a future cleanup rather than silently dropped here (see
// DESIGN.md).
func SpecializeEntryPoint(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	if cfg == nil || cfg.Specialization.EntryPoint == "" {
		return identityCopy(srcArena, src, dstArena, dst)
	}

	cg := analysis.BuildCallGraph(src)
	reachable := make(map[*ir.Node]bool)
	var root *ir.Node
	for _, fn := range src.Functions() {
		if fn.Payload.(*ir.FunctionPayload).Name == cfg.Specialization.EntryPoint {
			root = fn
			break
		}
	}
	if root != nil {
		markReachable(cg, root, reachable)
	}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		return r.Default(old)
	}
	rw := rewrite.New(src, dst, dstArena, process)
	for _, d := range src.Decls {
		if d.Tag == ir.TagFunction && root != nil && !reachable[d] {
			continue
		}
		nd, err := rw.RewriteNode(d)
		if err != nil {
			return nil, nil, err
		}
		dst.AddDecl(nd)
	}
	dst.Seal()
	return dstArena, dst, nil
}

func markReachable(cg *analysis.CallGraph, fn *ir.Node, seen map[*ir.Node]bool) {
	if seen[fn] {
		return
	}
	seen[fn] = true
	node := cg.Node(fn)
	if node == nil {
		return
	}
	for _, e := range node.Callees {
		markReachable(cg, e.Dst, seen)
	}
}
