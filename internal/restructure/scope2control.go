package restructure

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/diag"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// sctxKind distinguishes the three structured regions a Jump's target
// may resolve against while scope2control walks a function's CFG.
type sctxKind int

const (
	sctxIf sctxKind = iota
	sctxMatch
	sctxLoop
)

// sctxFrame is one entry of the region stack structure() threads
// through its recursion: the nearest enclosing If/Match's convergence
// block, or a Loop's head (continue target) and exit (break target).
type sctxFrame struct {
	kind     sctxKind
	merge    *analysis.CFNode // If/Match: convergence block. Loop: exit block (nil if no exit reconverges anywhere)
	loopHead *analysis.CFNode // Loop only
}

// blockCache memoizes one already-structured shared block (a Tail or a
// plain multi-predecessor successor), so every Jump/If/Loop reaching
// the same CFNode gets back the identical new BasicBlock rather than
// re-structuring (and re-diverging) its continuation.
type blockCache struct {
	block  *ir.Node
	params []*ir.Node
}

// s2cState is the per-function context for one scope2control run.
type s2cState struct {
	dstArena *arena.Arena
	cfg      *analysis.CFG
	lt       *analysis.LoopTree
	idx      map[*analysis.CFNode]int
	byBlock  map[uint64]*analysis.CFNode
	blocks   map[*analysis.CFNode]*blockCache
	fnName   string
}

// ScopeToControl turns a function's flat Jump/Branch/Switch CFG into
// nested If/Match/Loop regions, the shape a structured target like
// SPIR-V requires (spec.md §4.F step 4). It requires the CFG be
// reducible (every cycle has a single dominating entry); an
// irreducible input is rejected with diag.Irreducible rather than
// duplicated, per the documented open-question decision (see
// DESIGN.md) — node duplication is a valid alternative the original
// implementation supports but this port does not.
//
// Grounded on spec.md §4.F directly (no single original_source/ file
// implements this decomposition in the same shape: the original
// backend consumes its IR's existing structured control flow rather
// than reconstructing it, so the structuring algorithm itself — region
// stack plus reachability-based reconvergence, reconvergence.go — is
// this port's own construction from the spec's requirements).
func ScopeToControl(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagFunction {
			return r.Default(old)
		}
		cfg, err := analysis.Build(old)
		if err != nil {
			// already structured, or a trivial Return/Unreachable-only body.
			return recreateFunctionPlain(r, old)
		}
		fnName := old.Payload.(*ir.FunctionPayload).Name
		if !analysis.IsReducible(cfg) {
			return nil, diag.Irreducible("scope2control", fmt.Sprintf("function %q has an irreducible control-flow graph", fnName))
		}

		byBlock := make(map[uint64]*analysis.CFNode, len(cfg.Nodes()))
		for _, n := range cfg.Nodes() {
			byBlock[n.Block.ID()] = n
		}
		st := &s2cState{
			dstArena: dstArena,
			cfg:      cfg,
			lt:       analysis.BuildLoopTree(cfg),
			idx:      rpoIndexOf(rpoOrder(cfg)),
			byBlock:  byBlock,
			blocks:   make(map[*analysis.CFNode]*blockCache),
			fnName:   fnName,
		}

		fn, err := r.RecreateDeclHeaderIdentity(old)
		if err != nil {
			return nil, err
		}
		bodyTerm, err := st.structure(r, cfg.Entry, nil)
		if err != nil {
			return nil, err
		}
		fn.Payload.(*ir.FunctionPayload).SetBody(bodyTerm)
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

func (st *s2cState) cfgNodeFor(block *ir.Node) *analysis.CFNode { return st.byBlock[block.ID()] }

// structure builds the new terminator reached by walking b's old
// terminator, resolving Jump targets against stack, and recursing into
// new If/Match/Loop regions as needed.
func (st *s2cState) structure(r *rewrite.Rewriter, b *analysis.CFNode, stack []sctxFrame) (*ir.Node, error) {
	_, term := ir.Abstraction(b.Block)
	switch p := term.Payload.(type) {
	case ir.Return:
		mem, err := r.RewriteNode(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := r.RewriteNodes(p.Args)
		if err != nil {
			return nil, err
		}
		return st.dstArena.Intern(ir.TagReturn, ir.Return{Mem: mem, Args: args})
	case ir.Unreachable:
		return st.dstArena.Unreachable(), nil
	case ir.Jump:
		return st.resolveJump(r, p, stack)
	case ir.Branch:
		return st.buildIf(r, p, stack)
	case ir.Switch:
		return st.buildSwitch(r, p, stack)
	default:
		return nil, diag.Internal("scope2control", fmt.Sprintf("unexpected terminator %T reaching structuring in %q", p, st.fnName))
	}
}

// resolveJump classifies a Jump against the active region stack
// (continue / break / selection-merge), falls back to entering a new
// Loop region if the target is a loop head, and otherwise treats the
// jump as a reference to an independently-structured shared successor.
func (st *s2cState) resolveJump(r *rewrite.Rewriter, p ir.Jump, stack []sctxFrame) (*ir.Node, error) {
	targetCF := st.cfgNodeFor(p.Target)

	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		switch f.kind {
		case sctxLoop:
			if targetCF == f.loopHead {
				mem, args, err := st.rewriteMemArgs(r, p.Mem, p.Args)
				if err != nil {
					return nil, err
				}
				return st.dstArena.Intern(ir.TagMergeContinue, ir.MergeContinue{Mem: mem, Args: args})
			}
			if f.merge != nil && targetCF == f.merge {
				mem, args, err := st.rewriteMemArgs(r, p.Mem, p.Args)
				if err != nil {
					return nil, err
				}
				return st.dstArena.Intern(ir.TagMergeBreak, ir.MergeBreak{Mem: mem, Args: args})
			}
		case sctxIf, sctxMatch:
			if f.merge != nil && targetCF == f.merge {
				mem, args, err := st.rewriteMemArgs(r, p.Mem, p.Args)
				if err != nil {
					return nil, err
				}
				return st.dstArena.Intern(ir.TagMergeSelection, ir.MergeSelection{Mem: mem, Args: args})
			}
		}
	}

	if loop := st.lt.LooptreeLookup(targetCF); loop != nil && loop.Head == targetCF {
		mem, args, err := st.rewriteMemArgs(r, p.Mem, p.Args)
		if err != nil {
			return nil, err
		}
		return st.buildLoop(r, targetCF, mem, args, stack)
	}

	blk, _, err := st.getOrBuild(r, targetCF, stack)
	if err != nil {
		return nil, err
	}
	mem, args, err := st.rewriteMemArgs(r, p.Mem, p.Args)
	if err != nil {
		return nil, err
	}
	return st.dstArena.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: blk, Args: args})
}

func (st *s2cState) rewriteMemArgs(r *rewrite.Rewriter, mem *ir.Node, args []*ir.Node) (*ir.Node, []*ir.Node, error) {
	nmem, err := r.RewriteNode(mem)
	if err != nil {
		return nil, nil, err
	}
	nargs, err := r.RewriteNodes(args)
	if err != nil {
		return nil, nil, err
	}
	return nmem, nargs, nil
}

// getOrBuild structures target exactly once, memoized, and returns its
// new BasicBlock together with its (recreated, real) parameter list.
func (st *s2cState) getOrBuild(r *rewrite.Rewriter, target *analysis.CFNode, stack []sctxFrame) (*ir.Node, []*ir.Node, error) {
	if c, ok := st.blocks[target]; ok {
		return c.block, c.params, nil
	}
	oldParams, _ := ir.Abstraction(target.Block)
	nparams, err := recreateParamsHelper(r, oldParams)
	if err != nil {
		return nil, nil, err
	}
	r.RegisterList(oldParams, nparams)
	bb := st.dstArena.NewBasicBlock(nparams)
	st.blocks[target] = &blockCache{block: bb, params: nparams}

	term, err := st.structure(r, target, stack)
	if err != nil {
		return nil, nil, err
	}
	bb.Payload.(*ir.BasicBlockPayload).SetBody(term)
	return bb, nparams, nil
}

// getOrBuildTail is getOrBuild plus the yield types a structured
// region's Tail/InitialArgs pairing needs.
func (st *s2cState) getOrBuildTail(r *rewrite.Rewriter, target *analysis.CFNode, stack []sctxFrame) (*ir.Node, []*ir.Node, error) {
	blk, params, err := st.getOrBuild(r, target, stack)
	if err != nil {
		return nil, nil, err
	}
	types := make([]*ir.Node, len(params))
	for i, p := range params {
		types[i] = p.Payload.(ir.Param).QType
	}
	return blk, types, nil
}

// buildArm structures a single If/Match/Loop-body arm: a zero-param
// abstraction whose reference to the old target's parameters is
// resolved by direct substitution (args bound in a cloned scope)
// rather than by the arm itself taking parameters, per the invariant
// that If.TrueBody/FalseBody and MatchArm.Body carry no params.
func (st *s2cState) buildArm(r *rewrite.Rewriter, target *analysis.CFNode, args []*ir.Node, stack []sctxFrame) (*ir.Node, error) {
	oldParams, _ := ir.Abstraction(target.Block)
	scoped := r.CloneDict()
	for i, op := range oldParams {
		if i < len(args) {
			scoped.Register(op, args[i])
		}
	}
	term, err := st.structure(scoped, target, stack)
	if err != nil {
		return nil, err
	}
	bb := st.dstArena.NewBasicBlock(nil)
	bb.Payload.(*ir.BasicBlockPayload).SetBody(term)
	return bb, nil
}

func (st *s2cState) buildIf(r *rewrite.Rewriter, p ir.Branch, stack []sctxFrame) (*ir.Node, error) {
	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	cond, err := r.RewriteNode(p.Cond)
	if err != nil {
		return nil, err
	}
	tj := p.TrueJump.Payload.(ir.Jump)
	fj := p.FalseJump.Payload.(ir.Jump)
	trueCF := st.cfgNodeFor(tj.Target)
	falseCF := st.cfgNodeFor(fj.Target)
	trueArgs, err := r.RewriteNodes(tj.Args)
	if err != nil {
		return nil, err
	}
	falseArgs, err := r.RewriteNodes(fj.Args)
	if err != nil {
		return nil, err
	}

	merge, ok := findMerge(st.idx, trueCF, falseCF)
	var tail *ir.Node
	var yieldTypes []*ir.Node
	if ok {
		tail, yieldTypes, err = st.getOrBuildTail(r, merge, stack)
		if err != nil {
			return nil, err
		}
	} else {
		tail = st.dstArena.NewBasicBlock(nil)
		tail.Payload.(*ir.BasicBlockPayload).SetBody(st.dstArena.Unreachable())
	}

	frame := sctxFrame{kind: sctxIf, merge: merge}
	newStack := append(append([]sctxFrame{}, stack...), frame)
	trueBody, err := st.buildArm(r, trueCF, trueArgs, newStack)
	if err != nil {
		return nil, err
	}
	falseBody, err := st.buildArm(r, falseCF, falseArgs, newStack)
	if err != nil {
		return nil, err
	}
	return st.dstArena.Intern(ir.TagIf, ir.If{Mem: mem, Cond: cond, TrueBody: trueBody, FalseBody: falseBody, Tail: tail, YieldTypes: yieldTypes})
}

func (st *s2cState) buildSwitch(r *rewrite.Rewriter, p ir.Switch, stack []sctxFrame) (*ir.Node, error) {
	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	value, err := r.RewriteNode(p.Value)
	if err != nil {
		return nil, err
	}

	allTargets := make([]*analysis.CFNode, 0, len(p.Cases)+1)
	for _, c := range p.Cases {
		j := c.Jump.Payload.(ir.Jump)
		allTargets = append(allTargets, st.cfgNodeFor(j.Target))
	}
	dj := p.Default.Payload.(ir.Jump)
	allTargets = append(allTargets, st.cfgNodeFor(dj.Target))

	merge, ok := findMerge(st.idx, allTargets...)
	var tail *ir.Node
	var yieldTypes []*ir.Node
	if ok {
		tail, yieldTypes, err = st.getOrBuildTail(r, merge, stack)
		if err != nil {
			return nil, err
		}
	} else {
		tail = st.dstArena.NewBasicBlock(nil)
		tail.Payload.(*ir.BasicBlockPayload).SetBody(st.dstArena.Unreachable())
	}

	frame := sctxFrame{kind: sctxMatch, merge: merge}
	newStack := append(append([]sctxFrame{}, stack...), frame)

	arms := make([]ir.MatchArm, 0, len(p.Cases)+1)
	for i, c := range p.Cases {
		lit, err := r.RewriteNode(c.Literal)
		if err != nil {
			return nil, err
		}
		j := c.Jump.Payload.(ir.Jump)
		args, err := r.RewriteNodes(j.Args)
		if err != nil {
			return nil, err
		}
		body, err := st.buildArm(r, allTargets[i], args, newStack)
		if err != nil {
			return nil, err
		}
		arms = append(arms, ir.MatchArm{Literals: []*ir.Node{lit}, Body: body})
	}
	dargs, err := r.RewriteNodes(dj.Args)
	if err != nil {
		return nil, err
	}
	defBody, err := st.buildArm(r, allTargets[len(allTargets)-1], dargs, newStack)
	if err != nil {
		return nil, err
	}
	arms = append(arms, ir.MatchArm{Body: defBody, Default: true})

	return st.dstArena.Intern(ir.TagMatch, ir.Match{Mem: mem, Inspect: value, Arms: arms, Tail: tail, YieldTypes: yieldTypes})
}

func (st *s2cState) buildLoop(r *rewrite.Rewriter, headCF *analysis.CFNode, mem *ir.Node, args []*ir.Node, stack []sctxFrame) (*ir.Node, error) {
	loop := st.lt.LooptreeLookup(headCF)
	if loop == nil {
		return nil, diag.Internal("scope2control", fmt.Sprintf("loop head missing from loop tree in %q", st.fnName))
	}
	members := make(map[*analysis.CFNode]bool, len(loop.Members))
	for _, m := range loop.Members {
		members[m] = true
	}
	var exits []*analysis.CFNode
	seenExit := make(map[*analysis.CFNode]bool)
	for _, m := range loop.Members {
		for _, s := range m.Successors() {
			if !members[s] && !seenExit[s] {
				seenExit[s] = true
				exits = append(exits, s)
			}
		}
	}

	var tail *ir.Node
	var yieldTypes []*ir.Node
	var mergeNode *analysis.CFNode
	if len(exits) > 0 {
		if m, ok := findMerge(st.idx, exits...); ok {
			mergeNode = m
			var err error
			tail, yieldTypes, err = st.getOrBuildTail(r, m, stack)
			if err != nil {
				return nil, err
			}
		}
	}
	if tail == nil {
		tail = st.dstArena.NewBasicBlock(nil)
		tail.Payload.(*ir.BasicBlockPayload).SetBody(st.dstArena.Unreachable())
	}

	oldHeadParams, _ := ir.Abstraction(headCF.Block)
	newHeadParams, err := recreateParamsHelper(r, oldHeadParams)
	if err != nil {
		return nil, err
	}
	r.RegisterList(oldHeadParams, newHeadParams)
	loopBody := st.dstArena.NewBasicBlock(newHeadParams)

	frame := sctxFrame{kind: sctxLoop, merge: mergeNode, loopHead: headCF}
	newStack := append(append([]sctxFrame{}, stack...), frame)
	bodyTerm, err := st.structure(r, headCF, newStack)
	if err != nil {
		return nil, err
	}
	loopBody.Payload.(*ir.BasicBlockPayload).SetBody(bodyTerm)

	return st.dstArena.Intern(ir.TagLoop, ir.Loop{Mem: mem, Body: loopBody, InitialArgs: args, Tail: tail, YieldTypes: yieldTypes})
}
