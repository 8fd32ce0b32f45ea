package restructure

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// lcState is the per-function context LCSSA threads through its
// RewriteFn: the loop tree, and for every loop head block, the table
// of loop-carried values it gained a parameter for.
type lcState struct {
	dstArena *arena.Arena
	cfg      *analysis.CFG
	lt       *analysis.LoopTree
	carried  map[*ir.Node][]liftedParam // old loop-head block -> carried values
	headOf   map[*ir.Node]*analysis.Loop
}

// LCSSA rewrites a module into loop-closed form: every value defined
// outside a loop but used by a block inside it is threaded through an
// explicit parameter on the loop's head block, rather than referenced
// directly across the loop boundary. This is the invariant
// scope2control relies on to know exactly which values a structured
// Loop node must carry (spec.md §4.F step 3).
//
// Grounded on original_source/src/shady/passes/lcssa.c: that pass
// walks the dominator tree looking for values used outside the loop
// that defines them and introduces a new "loop exit" variable; the
// dual formulation used here (closing values flowing INTO a loop
// rather than OUT of it) follows from this IR's representation of
// loop-carried state as explicit head parameters (ir.Loop.InitialArgs)
// rather than mutable variables, but the mechanism — free-frontier
// computation plus a per-scope CloneDict substitution — is the same.
//
// Running LCSSA on an already-closed module is a no-op: every
// candidate free value is already bound to a head parameter by a
// previous run, so FreeFrontier's walk finds no definition outside
// defined, and carried is always empty on the second pass.
func LCSSA(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	st := &lcState{dstArena: dstArena}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		switch old.Tag {
		case ir.TagFunction:
			cfg, err := analysis.Build(old)
			if err != nil {
				return recreateFunctionPlain(r, old)
			}
			saved := *st
			st.cfg = cfg
			st.lt = analysis.BuildLoopTree(cfg)
			st.carried = make(map[*ir.Node][]liftedParam)
			st.headOf = make(map[*ir.Node]*analysis.Loop)
			for _, loop := range st.lt.Loops() {
				st.headOf[loop.Head.Block] = loop
			}

			fn, err := recreateFunctionPlain(r, old)
			*st = saved
			return fn, err
		case ir.TagBasicBlock:
			return rewriteLoopHeadBlock(r, st, old)
		case ir.TagJump:
			return rewriteJumpIntoHead(r, st, old)
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

// rewriteLoopHeadBlock recreates a block header, and if the block is a
// loop head, gives it extra trailing parameters for every value
// defined outside the loop but used somewhere inside it.
func rewriteLoopHeadBlock(r *rewrite.Rewriter, st *lcState, old *ir.Node) (*ir.Node, error) {
	if new, ok := r.SearchProcessed(old); ok {
		return new, nil
	}
	loop, isHead := st.headOf[old]

	oldParams, oldBody := ir.Abstraction(old)
	nparams, err := recreateParamsHelper(r, oldParams)
	if err != nil {
		return nil, err
	}

	var carry []liftedParam
	if isHead {
		carry = loopEscapingValues(r, st, loop)
	}

	var extra []*ir.Node
	for _, lp := range carry {
		extra = append(extra, lp.param)
	}
	bb := st.dstArena.NewBasicBlock(append(append([]*ir.Node{}, nparams...), extra...))
	r.Register(old, bb)
	r.RegisterList(oldParams, nparams)
	if isHead {
		st.carried[old] = carry
	}

	scoped := r.CloneDict()
	for _, lp := range carry {
		scoped.Register(lp.free, lp.param)
	}
	if oldBody != nil {
		nb, err := scoped.RewriteNode(oldBody)
		if err != nil {
			return nil, err
		}
		bb.Payload.(*ir.BasicBlockPayload).SetBody(nb)
	}
	return bb, nil
}

// loopEscapingValues computes the free values used by any block inside
// loop but defined by neither loop.Head's params nor any instruction
// inside the loop's own members.
func loopEscapingValues(r *rewrite.Rewriter, st *lcState, loop *analysis.Loop) []liftedParam {
	internal := make(map[uint64]bool)
	for _, m := range loop.Members {
		params, body := ir.Abstraction(m.Block)
		for _, p := range params {
			internal[p.ID()] = true
		}
		if body != nil {
			markInternalDefs(body, internal)
		}
	}

	seen := make(map[uint64]bool)
	var carry []liftedParam
	for _, m := range loop.Members {
		for _, fv := range analysis.FreeFrontier(m.Block) {
			if internal[fv.ID()] || seen[fv.ID()] {
				continue
			}
			if fv.Type == nil {
				continue
			}
			seen[fv.ID()] = true
			nfv, err := r.RewriteNode(fv)
			if err != nil {
				continue
			}
			p := r.DstArena.Param(nfv.Type, "carried", uint64(len(carry)))
			carry = append(carry, liftedParam{free: fv, param: p})
		}
	}
	return carry
}

func markInternalDefs(n *ir.Node, internal map[uint64]bool) {
	visited := make(map[uint64]bool)
	var walk func(n *ir.Node)
	walk = func(n *ir.Node) {
		if n == nil || visited[n.ID()] {
			return
		}
		visited[n.ID()] = true
		if n.Tag.Category() == ir.CatInstruction || n.Tag.Category() == ir.CatValue {
			internal[n.ID()] = true
		}
		for _, c := range ir.Children(n) {
			walk(c)
		}
	}
	walk(n)
}

// rewriteJumpIntoHead extends a Jump targeting a loop head with the
// carried values that head's header gained, whether the jump is the
// loop's entry edge or one of its back edges.
func rewriteJumpIntoHead(r *rewrite.Rewriter, st *lcState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Jump)
	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	args, err := r.RewriteNodes(p.Args)
	if err != nil {
		return nil, err
	}
	ntarget, err := r.RewriteNode(p.Target)
	if err != nil {
		return nil, err
	}
	for _, lp := range st.carried[p.Target] {
		nv, err := r.RewriteNode(lp.free)
		if err != nil {
			return nil, err
		}
		args = append(args, nv)
	}
	return st.dstArena.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: ntarget, Args: args})
}
