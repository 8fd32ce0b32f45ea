// Package restructure implements the control-flow-restructuring
// passes of spec.md §4.F: remove_critical_edges, lift_everything,
// lcssa, and scope2control/reconvergence_heuristics — the sequence
// that turns an unstructured Jump/Branch/Switch CFG into the nested
// If/Match/Loop regions a structured target like SPIR-V requires.
//
// Grounded on spec.md §4.F directly; the per-pass rewrite shape is
// grounded on the teacher's internal/pipeline/op_lowering.go dispatch-
// and-rebuild idiom (see internal/rewrite.Default), and critical-edge
// splitting specifically mirrors the trampoline-block insertion every
// SSA-form compiler needs before phi placement is safe — the closest
// prior art in the pack is tmc-mirror-go.tools/ssa's block-splitting
// helper, used for the same reason (dominance-safe phi placement).
package restructure

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// ceState is the mutable, function-scoped context the critical-edge
// pass threads through its RewriteFn closure — current holds the old
// block/function whose terminator is presently being rewritten, so
// Jump processing knows which (from, to) edge it is splitting.
type ceState struct {
	dstArena *arena.Arena
	critical map[[2]uint64]bool
	current  *ir.Node
}

// RemoveCriticalEdges splits every edge from a multi-successor block
// to a multi-predecessor block by inserting a trampoline block,
// enabling safe phi placement downstream (spec.md §4.F step 1).
func RemoveCriticalEdges(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	st := &ceState{dstArena: dstArena}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		switch old.Tag {
		case ir.TagFunction:
			cfg, err := analysis.Build(old)
			var critical map[[2]uint64]bool
			if err == nil {
				critical = criticalEdgeSet(cfg)
			}
			savedCritical, savedCurrent := st.critical, st.current
			st.critical, st.current = critical, old

			fn, err := r.RecreateDeclHeaderIdentity(old)
			if err != nil {
				return nil, err
			}
			if err := r.SetFunctionBody(fn, old.Payload.(*ir.FunctionPayload).Body); err != nil {
				return nil, err
			}

			st.critical, st.current = savedCritical, savedCurrent
			return fn, nil
		case ir.TagBasicBlock:
			saved := st.current
			st.current = old
			bb, err := r.RewriteAbstraction(old)
			st.current = saved
			return bb, err
		case ir.TagJump:
			return rewriteJumpSplitting(r, st, old)
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

// rewriteJumpSplitting rewrites a Jump terminator, inserting a
// trampoline block when (st.current -> target) is a critical edge.
func rewriteJumpSplitting(r *rewrite.Rewriter, st *ceState, oldJump *ir.Node) (*ir.Node, error) {
	p := oldJump.Payload.(ir.Jump)
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
	a := st.dstArena
	if st.current == nil || st.critical == nil || !st.critical[[2]uint64{st.current.ID(), p.Target.ID()}] {
		return a.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: ntarget, Args: args})
	}

	// Critical edge: build a trampoline block whose params mirror the
	// target's and that forwards them straight on with no intervening
	// side effect, so it simply reuses the incoming mem token.
	nparams, _ := ir.Abstraction(ntarget)
	params := make([]*ir.Node, len(nparams))
	for i, np := range nparams {
		op := np.Payload.(ir.Param)
		params[i] = a.Param(op.QType, op.Name+"_trampoline", uint64(i))
	}
	trampoline := a.NewBasicBlock(params)
	tjump, err := a.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: ntarget, Args: params})
	if err != nil {
		return nil, err
	}
	trampoline.Payload.(*ir.BasicBlockPayload).SetBody(tjump)
	return a.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: trampoline, Args: args})
}

func criticalEdgeSet(cfg *analysis.CFG) map[[2]uint64]bool {
	critical := make(map[[2]uint64]bool)
	for _, n := range cfg.Nodes() {
		if len(n.Successors()) <= 1 {
			continue
		}
		for _, s := range n.Successors() {
			if len(s.Predecessors()) > 1 {
				critical[[2]uint64{n.Block.ID(), s.Block.ID()}] = true
			}
		}
	}
	return critical
}
