package emit

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/diag"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/spvb"
)

// fnEmitter holds the per-function state emit_spv_control_flow.c
// threads as (fn_builder, bb_builders, result registrations): a
// FnBuilder, reserved ids for every BasicBlock and its parameter phis,
// and the node -> SpvId registration table (register_result in the
// original).
type fnEmitter struct {
	e         *Emitter
	fb        *spvb.FnBuilder
	blockIDs  map[*ir.Node]spvb.ID
	blockPhis map[*ir.Node][]spvb.ID
	values    map[*ir.Node]spvb.ID
}

// resolveBlock returns node's (memoized) reserved SpvId and per-
// parameter phi ids, synchronously emitting node's body with mt the
// first time it is reached. This is find_basic_block_builder from
// emit_spv_control_flow.c: a structured successor shared by multiple
// regions (restructure.getOrBuild's own block-sharing cache) must
// still be reserved and emitted exactly once, however many terminators
// branch to it — whether reached as a plain Jump target or as an
// If/Match/Loop's Tail.
func (fe *fnEmitter) resolveBlock(node *ir.Node, mt mergeTargets) (spvb.ID, []spvb.ID, error) {
	if id, ok := fe.blockIDs[node]; ok {
		return id, fe.blockPhis[node], nil
	}
	id := fe.fb.ReserveBlock()
	fe.blockIDs[node] = id

	params, body := ir.Abstraction(node)
	phis := make([]spvb.ID, len(params))
	for i, param := range params {
		phi := fe.fb.NewPhi(id, fe.e.emitType(paramType(param)))
		phis[i] = phi
		fe.values[param] = phi
	}
	fe.blockPhis[node] = phis

	fe.fb.SetCurrent(id)
	if err := fe.emitTerminator(id, mt, body); err != nil {
		return 0, nil, err
	}
	return id, phis, nil
}

// emitValue resolves n to an already-registered or freshly materialized
// SpvId (emit_value in the original), memoizing as it goes. Effectful
// instructions are expected to already be registered by emitMemChain
// having walked past them; anything else (constants, params, pure
// instructions) is emitted lazily on first reference.
func (fe *fnEmitter) emitValue(bb spvb.ID, n *ir.Node) (spvb.ID, error) {
	if id, ok := fe.values[n]; ok {
		return id, nil
	}

	switch p := n.Payload.(type) {
	case ir.IntLit, ir.FloatLit, ir.BoolLit, ir.Undef, ir.NullPtr:
		id := fe.e.constID(n)
		fe.values[n] = id
		return id, nil
	case ir.FnAddr:
		target, ok := fe.e.fnIDs[p.Fn]
		if !ok {
			return 0, diag.Internal("emit", fmt.Sprintf("FnAddr to unregistered function %s", p.Fn))
		}
		fe.values[n] = target
		return target, nil
	case ir.Param:
		// Reached before the owning Function/BasicBlock registered it
		// (e.g. a stray Param never bound as a block parameter) —
		// allocate defensively rather than fail the whole emission.
		id := fe.e.mb.AllocID()
		fe.values[n] = id
		return id, nil
	case ir.PrimOp:
		args, err := fe.emitValues(bb, p.Args)
		if err != nil {
			return 0, err
		}
		id := fe.e.mb.AllocID()
		fe.fb.SetCurrent(bb)
		fe.fb.Emit(spvb.OpPrimOp, append([]uint32{uint32(id)}, args...)...)
		fe.values[n] = id
		return id, nil
	case ir.Lea:
		base, err := fe.emitValue(bb, p.Base)
		if err != nil {
			return 0, err
		}
		offs, err := fe.emitValues(bb, p.Offsets)
		if err != nil {
			return 0, err
		}
		id := fe.e.mb.AllocID()
		fe.fb.SetCurrent(bb)
		fe.fb.Emit(spvb.OpAccessChain, append([]uint32{uint32(id), uint32(base)}, offs...)...)
		fe.values[n] = id
		return id, nil
	case ir.ReinterpretCast:
		v, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return 0, err
		}
		id := fe.e.mb.AllocID()
		ty := fe.e.emitType(p.DestType)
		fe.fb.SetCurrent(bb)
		fe.fb.Emit(spvb.OpBitcast, uint32(id), uint32(ty), uint32(v))
		fe.values[n] = id
		return id, nil
	case ir.Conversion:
		v, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return 0, err
		}
		id := fe.e.mb.AllocID()
		ty := fe.e.emitType(p.DestType)
		fe.fb.SetCurrent(bb)
		fe.fb.Emit(spvb.OpConvert, uint32(id), uint32(ty), uint32(v))
		fe.values[n] = id
		return id, nil
	case ir.Comment:
		// No-op annotation; never itself a value, but tolerate a
		// reference rather than treat it as an internal error.
		id := fe.e.mb.AllocID()
		fe.values[n] = id
		return id, nil
	default:
		// Effectful instruction categories (Call, Load, Store,
		// LocalAlloc, StackAlloc, Memcpy, Push/PopValueStack,
		// Get/SetStackSize, DebugPrintf, ExtInstr) are only ever
		// legal operands once emitMemChain has already walked and
		// registered them — reaching this branch means a value is
		// used before its defining effect was scheduled, an
		// InternalInvariant per spec.md §7.
		return 0, diag.Internal("emit", fmt.Sprintf("value %s referenced before its defining effect was emitted", n))
	}
}

func (fe *fnEmitter) emitValues(bb spvb.ID, ns []*ir.Node) ([]uint32, error) {
	out := make([]uint32, len(ns))
	for i, n := range ns {
		id, err := fe.emitValue(bb, n)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(id)
	}
	return out, nil
}

// constID hands out (and memoizes, module-wide — node hash-consing
// means the same literal node is shared across every function that
// references it) a fresh id standing in for a constant's OpConstant/
// OpUndef/OpConstantNull declaration.
func (e *Emitter) constID(n *ir.Node) spvb.ID {
	if id, ok := e.constIDs[n]; ok {
		return id
	}
	id := e.mb.AllocID()
	e.constIDs[n] = id
	return id
}

// instrMem returns the Mem predecessor of an effectful instruction
// node, or nil if n does not carry one (pure instructions never enter
// the mem chain walk in the first place).
func instrMem(n *ir.Node) (*ir.Node, bool) {
	switch p := n.Payload.(type) {
	case ir.Call:
		return p.Mem, true
	case ir.Load:
		return p.Mem, true
	case ir.Store:
		return p.Mem, true
	case ir.LocalAlloc:
		return p.Mem, true
	case ir.StackAlloc:
		return p.Mem, true
	case ir.Memcpy:
		return p.Mem, true
	case ir.PushValueStack:
		return p.Mem, true
	case ir.PopValueStack:
		return p.Mem, true
	case ir.GetStackSize:
		return p.Mem, true
	case ir.SetStackSize:
		return p.Mem, true
	case ir.DebugPrintf:
		return p.Mem, true
	case ir.ExtInstr:
		return p.Mem, true
	default:
		return nil, false
	}
}

// emitMemChain walks backward from mem (a terminator's or another
// effectful instruction's Mem predecessor) collecting the block's
// linear effect sequence, then emits each in oldest-first order —
// mirroring how the original's Let-chain walk reaches emit_instruction
// once per binding before its continuation's terminator runs.
func (fe *fnEmitter) emitMemChain(bb spvb.ID, mem *ir.Node) error {
	var chain []*ir.Node
	cur := mem
	for cur != nil {
		if _, ok := fe.values[cur]; ok {
			break
		}
		chain = append(chain, cur)
		next, ok := instrMem(cur)
		if !ok {
			return diag.Internal("emit", fmt.Sprintf("mem chain reached a non-effectful node %s", cur))
		}
		cur = next
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if err := fe.emitInstruction(bb, chain[i]); err != nil {
			return err
		}
	}
	return nil
}

// emitInstruction emits one effectful instruction's SPIR-V-shaped op,
// registering its result (if any) in fe.values.
func (fe *fnEmitter) emitInstruction(bb spvb.ID, n *ir.Node) error {
	fe.fb.SetCurrent(bb)
	switch p := n.Payload.(type) {
	case ir.Call:
		calleeID, err := fe.resolveCallee(bb, p.Callee)
		if err != nil {
			return err
		}
		args, err := fe.emitValues(bb, p.Args)
		if err != nil {
			return err
		}
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpFunctionCall, append([]uint32{uint32(id), uint32(calleeID)}, args...)...)
		fe.values[n] = id
		return nil
	case ir.Load:
		ptr, err := fe.emitValue(bb, p.Pointer)
		if err != nil {
			return err
		}
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpLoad, uint32(id), uint32(ptr))
		fe.values[n] = id
		return nil
	case ir.Store:
		ptr, err := fe.emitValue(bb, p.Pointer)
		if err != nil {
			return err
		}
		val, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return err
		}
		fe.fb.Emit(spvb.OpStore, uint32(ptr), uint32(val))
		return nil
	case ir.LocalAlloc:
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpVariable, uint32(id), uint32(fe.e.emitType(p.Elem)))
		fe.values[n] = id
		return nil
	case ir.StackAlloc:
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpVariable, uint32(id), uint32(fe.e.emitType(p.Elem)))
		fe.values[n] = id
		return nil
	case ir.Memcpy:
		dst, err := fe.emitValue(bb, p.Dst)
		if err != nil {
			return err
		}
		src, err := fe.emitValue(bb, p.Src)
		if err != nil {
			return err
		}
		size, err := fe.emitValue(bb, p.Size)
		if err != nil {
			return err
		}
		fe.fb.Emit(spvb.OpCopyMemory, uint32(dst), uint32(src), uint32(size))
		return nil
	case ir.PushValueStack:
		val, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return err
		}
		fe.fb.Emit(spvb.OpExtInst, uint32(val))
		return nil
	case ir.PopValueStack:
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpExtInst, uint32(id), uint32(fe.e.emitType(p.Ty)))
		fe.values[n] = id
		return nil
	case ir.GetStackSize:
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpExtInst, uint32(id))
		fe.values[n] = id
		return nil
	case ir.SetStackSize:
		val, err := fe.emitValue(bb, p.Value)
		if err != nil {
			return err
		}
		fe.fb.Emit(spvb.OpExtInst, uint32(val))
		return nil
	case ir.DebugPrintf:
		args, err := fe.emitValues(bb, p.Args)
		if err != nil {
			return err
		}
		fe.fb.Emit(spvb.OpNop, args...)
		return nil
	case ir.ExtInstr:
		args, err := fe.emitValues(bb, p.Args)
		if err != nil {
			return err
		}
		id := fe.e.mb.AllocID()
		fe.fb.Emit(spvb.OpExtInst, append([]uint32{uint32(id)}, args...)...)
		fe.values[n] = id
		return nil
	default:
		return diag.Internal("emit", fmt.Sprintf("emitInstruction: unexpected tag %s", n.Tag))
	}
}

// resolveCallee finds the callee's SpvId: a direct FnAddr resolves
// through Emitter.fnIDs, anything else (an indirect callee that
// LiftIndirectTargets should already have rejected) falls back to
// ordinary value emission.
func (fe *fnEmitter) resolveCallee(bb spvb.ID, callee *ir.Node) (spvb.ID, error) {
	if callee.Tag == ir.TagFnAddr {
		fn := callee.Payload.(ir.FnAddr).Fn
		id, ok := fe.e.fnIDs[fn]
		if !ok {
			return 0, diag.Internal("emit", fmt.Sprintf("call to unregistered function %s", fn))
		}
		return id, nil
	}
	return fe.emitValue(bb, callee)
}
