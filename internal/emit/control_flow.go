package emit

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/diag"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/irtypes"
	"github.com/sunholo/shadeir/internal/spvb"
)

// mergeTargets is the C original's MergeTargets, passed by value
// through every recursive emitTerminator call: the currently active
// selection-join / loop-continue / loop-break phi sinks a structured
// merge terminator lexically inside that region must branch to.
type mergeTargets struct {
	joinTarget spvb.ID
	joinPhis   []spvb.ID

	continueTarget spvb.ID
	continuePhis   []spvb.ID

	breakTarget spvb.ID
	breakPhis   []spvb.ID
}

// emitTerminator is emit_terminator: dispatch on the terminator tag,
// first draining bb's pending effect chain (the Let-chain walk the
// original interleaves into Return/Jump/etc themselves), then emitting
// the terminator's own SPIR-V-shaped instruction.
func (fe *fnEmitter) emitTerminator(bb spvb.ID, mt mergeTargets, term *ir.Node) error {
	switch p := term.Payload.(type) {
	case ir.Return:
		if err := fe.emitMemChain(bb, p.Mem); err != nil {
			return err
		}
		fe.fb.SetCurrent(bb)
		switch len(p.Args) {
		case 0:
			fe.fb.Terminate(spvb.OpReturn)
			return nil
		case 1:
			v, err := fe.emitValue(bb, p.Args[0])
			if err != nil {
				return err
			}
			fe.fb.Terminate(spvb.OpReturnValue, uint32(v))
			return nil
		default:
			vals, err := fe.emitValues(bb, p.Args)
			if err != nil {
				return err
			}
			packed := fe.e.mb.AllocID()
			fe.fb.Emit(spvb.OpCompositeConstruct, append([]uint32{uint32(packed)}, vals...)...)
			fe.fb.Terminate(spvb.OpReturnValue, uint32(packed))
			return nil
		}

	case ir.Unreachable:
		fe.fb.SetCurrent(bb)
		fe.fb.Terminate(spvb.OpUnreachable)
		return nil

	case ir.Jump:
		if err := fe.emitMemChain(bb, p.Mem); err != nil {
			return err
		}
		targetID, _, err := fe.resolveBlock(p.Target, mt)
		if err != nil {
			return err
		}
		if err := fe.addBranchPhis(bb, term); err != nil {
			return err
		}
		fe.fb.SetCurrent(bb)
		fe.fb.Terminate(spvb.OpBranch, uint32(targetID))
		return nil

	case ir.Branch:
		if err := fe.emitMemChain(bb, p.Mem); err != nil {
			return err
		}
		trueTarget := p.TrueJump.Payload.(ir.Jump).Target
		falseTarget := p.FalseJump.Payload.(ir.Jump).Target
		trueID, _, err := fe.resolveBlock(trueTarget, mt)
		if err != nil {
			return err
		}
		falseID, _, err := fe.resolveBlock(falseTarget, mt)
		if err != nil {
			return err
		}
		cond, err := fe.emitValue(bb, p.Cond)
		if err != nil {
			return err
		}
		if err := fe.addBranchPhis(bb, p.TrueJump); err != nil {
			return err
		}
		if err := fe.addBranchPhis(bb, p.FalseJump); err != nil {
			return err
		}
		fe.fb.SetCurrent(bb)
		fe.fb.Terminate(spvb.OpBranchConditional, uint32(cond), uint32(trueID), uint32(falseID))
		return nil

	case ir.Switch:
		if err := fe.emitMemChain(bb, p.Mem); err != nil {
			return err
		}
		inspectee, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return err
		}
		operands := []uint32{uint32(inspectee)}
		for _, c := range p.Cases {
			j := c.Jump.Payload.(ir.Jump)
			caseID, _, err := fe.resolveBlock(j.Target, mt)
			if err != nil {
				return err
			}
			// Resolved open question (spec.md §9, §4.I): case jumps
			// register phi sources symmetrically with Branch, not
			// left as a TODO the way the original leaves it.
			if err := fe.addBranchPhis(bb, c.Jump); err != nil {
				return err
			}
			operands = append(operands, literalWords(c.Literal, p.Value)...)
			operands = append(operands, uint32(caseID))
		}
		dj := p.Default.Payload.(ir.Jump)
		defaultID, _, err := fe.resolveBlock(dj.Target, mt)
		if err != nil {
			return err
		}
		if err := fe.addBranchPhis(bb, p.Default); err != nil {
			return err
		}
		fe.fb.SetCurrent(bb)
		fe.fb.Terminate(spvb.OpSwitch, append([]uint32{uint32(defaultID)}, operands...)...)
		return nil

	case ir.If:
		return fe.emitIf(bb, mt, p)

	case ir.Match:
		return fe.emitMatch(bb, mt, p)

	case ir.Loop:
		return fe.emitLoop(bb, mt, p)

	case ir.MergeSelection:
		if mt.joinTarget == 0 {
			return diag.Internal("emit", "MergeSelection outside its If region (invariant 6)")
		}
		return fe.emitMerge(bb, p.Mem, p.Args, mt.joinTarget, mt.joinPhis)

	case ir.MergeContinue:
		if mt.continueTarget == 0 {
			return diag.Internal("emit", "MergeContinue outside its Loop region (invariant 6)")
		}
		return fe.emitMerge(bb, p.Mem, p.Args, mt.continueTarget, mt.continuePhis)

	case ir.MergeBreak:
		if mt.breakTarget == 0 {
			return diag.Internal("emit", "MergeBreak outside its Loop region (invariant 6)")
		}
		return fe.emitMerge(bb, p.Mem, p.Args, mt.breakTarget, mt.breakPhis)

	case ir.TailCall, ir.Join, ir.Control:
		return diag.Unsupported("emit", fmt.Sprintf("%s must be lowered before emission (lower_callf/lower_tailcalls)", term.Tag))

	default:
		return diag.Internal("emit", fmt.Sprintf("emitTerminator: unexpected tag %s", term.Tag))
	}
}

func (fe *fnEmitter) emitMerge(bb spvb.ID, mem *ir.Node, args []*ir.Node, target spvb.ID, phis []spvb.ID) error {
	if err := fe.emitMemChain(bb, mem); err != nil {
		return err
	}
	for i, a := range args {
		v, err := fe.emitValue(bb, a)
		if err != nil {
			return err
		}
		fe.fb.AddPhiSource(target, phis[i], v, bb)
	}
	fe.fb.SetCurrent(bb)
	fe.fb.Terminate(spvb.OpBranch, uint32(target))
	return nil
}

// addBranchPhis is add_branch_phis: for a Jump terminator node,
// resolve each argument in the jumping block and register it as a phi
// source on the target's already-resolved parameter phis (the caller
// must have called resolveBlock on jump's target first).
func (fe *fnEmitter) addBranchPhis(bb spvb.ID, jump *ir.Node) error {
	j := jump.Payload.(ir.Jump)
	phis, ok := fe.blockPhis[j.Target]
	if !ok {
		return diag.Internal("emit", fmt.Sprintf("jump target %s was never resolved", j.Target))
	}
	if len(phis) != len(j.Args) {
		return diag.Internal("emit", fmt.Sprintf("jump to %s supplies %d args, target expects %d", j.Target, len(j.Args), len(phis)))
	}
	targetID := fe.blockIDs[j.Target]
	for i, a := range j.Args {
		v, err := fe.emitValue(bb, a)
		if err != nil {
			return err
		}
		fe.fb.AddPhiSource(targetID, phis[i], v, bb)
	}
	return nil
}

// emitIf is emit_if: a two- (or one-)way selection with a join block
// whose phis receive the tail's incoming values. The join block is
// resolved (not unconditionally reserved) since If.Tail may be a
// shared structured successor another region already resolved.
func (fe *fnEmitter) emitIf(bb spvb.ID, mt mergeTargets, p ir.If) error {
	if err := fe.emitMemChain(bb, p.Mem); err != nil {
		return err
	}

	trueBB := fe.fb.ReserveBlock()
	hasFalse := p.FalseBody != nil
	var falseBB spvb.ID
	if hasFalse {
		falseBB = fe.fb.ReserveBlock()
	}

	joinBB, joinPhis, err := fe.resolveBlock(p.Tail, mt)
	if err != nil {
		return err
	}
	if !hasFalse {
		falseBB = joinBB
	}

	fe.fb.SetCurrent(bb)
	fe.fb.Emit(spvb.OpSelectionMerge, uint32(joinBB))
	cond, err := fe.emitValue(bb, p.Cond)
	if err != nil {
		return err
	}
	fe.fb.SetCurrent(bb)
	fe.fb.Terminate(spvb.OpBranchConditional, uint32(cond), uint32(trueBB), uint32(falseBB))

	branchMT := mt
	branchMT.joinTarget, branchMT.joinPhis = joinBB, joinPhis

	_, trueBody := ir.Abstraction(p.TrueBody)
	fe.fb.SetCurrent(trueBB)
	if err := fe.emitTerminator(trueBB, branchMT, trueBody); err != nil {
		return err
	}

	if hasFalse {
		_, falseBody := ir.Abstraction(p.FalseBody)
		fe.fb.SetCurrent(falseBB)
		if err := fe.emitTerminator(falseBB, branchMT, falseBody); err != nil {
			return err
		}
	}
	return nil
}

// emitMatch is emit_match: an N-way selection over an integer inspect
// value, structurally identical to emitIf but with one case block per
// arm instead of a fixed true/false pair.
func (fe *fnEmitter) emitMatch(bb spvb.ID, mt mergeTargets, p ir.Match) error {
	if err := fe.emitMemChain(bb, p.Mem); err != nil {
		return err
	}
	inspectee, err := fe.emitValue(bb, p.Inspect)
	if err != nil {
		return err
	}

	joinBB, joinPhis, err := fe.resolveBlock(p.Tail, mt)
	if err != nil {
		return err
	}
	branchMT := mt
	branchMT.joinTarget, branchMT.joinPhis = joinBB, joinPhis

	type arm struct {
		bb      spvb.ID
		literal []uint32
		body    *ir.Node
	}
	var defaultBB spvb.ID
	var defaultBody *ir.Node
	arms := make([]arm, 0, len(p.Arms))
	for _, a := range p.Arms {
		if a.Default {
			defaultBB = fe.fb.ReserveBlock()
			_, defaultBody = ir.Abstraction(a.Body)
			continue
		}
		abb := fe.fb.ReserveBlock()
		_, body := ir.Abstraction(a.Body)
		for _, lit := range a.Literals {
			arms = append(arms, arm{bb: abb, literal: literalWords(lit, p.Inspect), body: body})
		}
	}
	if defaultBB == 0 {
		return diag.Internal("emit", "Match has no default arm")
	}

	operands := []uint32{uint32(inspectee), uint32(defaultBB)}
	for _, a := range arms {
		operands = append(operands, a.literal...)
		operands = append(operands, uint32(a.bb))
	}
	fe.fb.SetCurrent(bb)
	fe.fb.Emit(spvb.OpSelectionMerge, uint32(joinBB))
	fe.fb.Terminate(spvb.OpSwitch, operands...)

	seenBodies := map[spvb.ID]bool{}
	for _, a := range arms {
		if seenBodies[a.bb] {
			continue
		}
		seenBodies[a.bb] = true
		fe.fb.SetCurrent(a.bb)
		if err := fe.emitTerminator(a.bb, branchMT, a.body); err != nil {
			return err
		}
	}
	fe.fb.SetCurrent(defaultBB)
	return fe.emitTerminator(defaultBB, branchMT, defaultBody)
}

// emitLoop is emit_loop: four blocks (header/body/continue/next), a
// header phi per loop-carried parameter with the two standard sources
// (initial value from bb, recurrent value from continue), and a next
// phi per yield type fed only by MergeBreak. next is resolved rather
// than unconditionally reserved for the same sharing reason as
// emitIf's join block.
func (fe *fnEmitter) emitLoop(bb spvb.ID, mt mergeTargets, p ir.Loop) error {
	if err := fe.emitMemChain(bb, p.Mem); err != nil {
		return err
	}

	headerBB := fe.fb.ReserveBlock()
	bodyBB := fe.fb.ReserveBlock()
	continueBB := fe.fb.ReserveBlock()

	loopParams, loopBody := ir.Abstraction(p.Body)

	nextBB, breakPhis, err := fe.resolveBlock(p.Tail, mt)
	if err != nil {
		return err
	}

	continuePhis := make([]spvb.ID, len(loopParams))
	for i, lp := range loopParams {
		ty := fe.e.emitType(paramType(lp))
		continuePhi := fe.fb.NewPhi(continueBB, ty)
		continuePhis[i] = continuePhi

		headerPhi := fe.fb.NewPhi(headerBB, ty)
		initVal, err := fe.emitValue(bb, p.InitialArgs[i])
		if err != nil {
			return err
		}
		fe.fb.AddPhiSource(headerBB, headerPhi, initVal, bb)
		fe.fb.AddPhiSource(headerBB, headerPhi, continuePhi, continueBB)
		fe.values[lp] = headerPhi
	}

	fe.fb.SetCurrent(bb)
	fe.fb.Terminate(spvb.OpBranch, uint32(headerBB))

	fe.fb.SetCurrent(headerBB)
	fe.fb.Emit(spvb.OpLoopMerge, uint32(nextBB), uint32(continueBB))
	fe.fb.Terminate(spvb.OpBranch, uint32(bodyBB))

	bodyMT := mt
	bodyMT.continueTarget, bodyMT.continuePhis = continueBB, continuePhis
	bodyMT.breakTarget, bodyMT.breakPhis = nextBB, breakPhis

	fe.fb.SetCurrent(bodyBB)
	if err := fe.emitTerminator(bodyBB, bodyMT, loopBody); err != nil {
		return err
	}

	fe.fb.SetCurrent(continueBB)
	fe.fb.Terminate(spvb.OpBranch, uint32(headerBB))
	return nil
}

// literalWords encodes a Switch/Match case literal as one u32 word,
// or two (low, high) for a 64-bit inspectee — spec.md §4.I's explicit
// width-widening rule.
func literalWords(lit *ir.Node, inspectee *ir.Node) []uint32 {
	value := lit.Payload.(ir.IntLit).Value
	width := 32
	if inspectee.Type != nil {
		ty := irtypes.GetUnqualifiedType(inspectee.Type)
		if it, ok := ty.Payload.(ir.IntType); ok {
			width = it.Width
		}
	}
	if width > 32 {
		u := uint64(value)
		return []uint32{uint32(u & 0xFFFFFFFF), uint32(u >> 32)}
	}
	return []uint32{uint32(value)}
}
