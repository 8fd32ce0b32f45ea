package rewrite

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/ir"
)

// RecreateNodeIdentity performs a tag-for-tag structural copy of old,
// rewriting every child node reference through r, and interning the
// result in the destination arena. This is what a pass calls for every
// tag it does not itself transform — the "leave other nodes
// structurally identical" half of spec.md §4.G's pass contract.
//
// Property #2 of spec.md §8 (rewriter structure preservation) follows
// directly from this: applying RecreateNodeIdentity to every node of a
// module reproduces a module indistinguishable, node for node, from
// the source.
func (r *Rewriter) RecreateNodeIdentity(old *ir.Node) (*ir.Node, error) {
	a := r.DstArena
	rw := func(n *ir.Node) (*ir.Node, error) { return r.RewriteNode(n) }
	rws := func(ns []*ir.Node) ([]*ir.Node, error) { return r.RewriteNodes(ns) }

	switch old.Tag {
	// --- Types ---
	case ir.TagIntType, ir.TagFloatType, ir.TagBoolType:
		return a.Intern(old.Tag, old.Payload)
	case ir.TagPtrType:
		p := old.Payload.(ir.PtrType)
		pointee, err := rw(p.Pointee)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagPtrType, ir.PtrType{AddressSpace: p.AddressSpace, Pointee: pointee})
	case ir.TagArrType:
		p := old.Payload.(ir.ArrType)
		elem, err := rw(p.Element)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagArrType, ir.ArrType{Element: elem, Size: p.Size})
	case ir.TagPackType:
		p := old.Payload.(ir.PackType)
		elem, err := rw(p.Element)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagPackType, ir.PackType{Element: elem, Width: p.Width})
	case ir.TagRecordType:
		p := old.Payload.(ir.RecordType)
		members, err := rws(p.Members)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagRecordType, ir.RecordType{Members: members})
	case ir.TagFnType:
		p := old.Payload.(ir.FnType)
		params, err := rws(p.ParamTypes)
		if err != nil {
			return nil, err
		}
		returns, err := rws(p.ReturnTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagFnType, ir.FnType{ParamTypes: params, ReturnTypes: returns})
	case ir.TagJoinPointType:
		p := old.Payload.(ir.JoinPointType)
		yields, err := rws(p.YieldTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagJoinPointType, ir.JoinPointType{YieldTypes: yields})
	case ir.TagQualifiedType:
		p := old.Payload.(ir.QualifiedType)
		inner, err := rw(p.Inner)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagQualifiedType, ir.QualifiedType{Inner: inner, Uniform: p.Uniform})

	// --- Values ---
	case ir.TagParam:
		p := old.Payload.(ir.Param)
		qty, err := rw(p.QType)
		if err != nil {
			return nil, err
		}
		return a.Param(qty, p.Name, p.Slot), nil
	case ir.TagFnAddr:
		p := old.Payload.(ir.FnAddr)
		fn, err := rw(p.Fn)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagFnAddr, ir.FnAddr{Fn: fn})
	case ir.TagIntLit:
		p := old.Payload.(ir.IntLit)
		ity, err := rw(p.IntTy)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagIntLit, ir.IntLit{IntTy: ity, Value: p.Value})
	case ir.TagFloatLit:
		p := old.Payload.(ir.FloatLit)
		fty, err := rw(p.FloatTy)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagFloatLit, ir.FloatLit{FloatTy: fty, Value: p.Value})
	case ir.TagBoolLit:
		return a.Intern(old.Tag, old.Payload)
	case ir.TagUndef:
		p := old.Payload.(ir.Undef)
		ty, err := rw(p.Ty)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagUndef, ir.Undef{Ty: ty})
	case ir.TagNullPtr:
		p := old.Payload.(ir.NullPtr)
		pty, err := rw(p.PtrTy)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagNullPtr, ir.NullPtr{PtrTy: pty})

	// --- Instructions ---
	case ir.TagCall:
		p := old.Payload.(ir.Call)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		callee, err := rw(p.Callee)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagCall, ir.Call{Mem: mem, Callee: callee, Args: args})
	case ir.TagPrimOp:
		p := old.Payload.(ir.PrimOp)
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagPrimOp, ir.PrimOp{Op: p.Op, Args: args})
	case ir.TagLoad:
		p := old.Payload.(ir.Load)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		ptr, err := rw(p.Pointer)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagLoad, ir.Load{Mem: mem, Pointer: ptr})
	case ir.TagStore:
		p := old.Payload.(ir.Store)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		ptr, err := rw(p.Pointer)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagStore, ir.Store{Mem: mem, Pointer: ptr, Value: val})
	case ir.TagLocalAlloc:
		p := old.Payload.(ir.LocalAlloc)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		elem, err := rw(p.Elem)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagLocalAlloc, ir.LocalAlloc{Mem: mem, Elem: elem})
	case ir.TagStackAlloc:
		p := old.Payload.(ir.StackAlloc)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		elem, err := rw(p.Elem)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagStackAlloc, ir.StackAlloc{Mem: mem, Elem: elem})
	case ir.TagLea:
		p := old.Payload.(ir.Lea)
		base, err := rw(p.Base)
		if err != nil {
			return nil, err
		}
		offs, err := rws(p.Offsets)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagLea, ir.Lea{Base: base, Offsets: offs})
	case ir.TagMemcpy:
		p := old.Payload.(ir.Memcpy)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		dst, err := rw(p.Dst)
		if err != nil {
			return nil, err
		}
		src, err := rw(p.Src)
		if err != nil {
			return nil, err
		}
		size, err := rw(p.Size)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagMemcpy, ir.Memcpy{Mem: mem, Dst: dst, Src: src, Size: size})
	case ir.TagReinterpretCast:
		p := old.Payload.(ir.ReinterpretCast)
		dt, err := rw(p.DestType)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagReinterpretCast, ir.ReinterpretCast{DestType: dt, Value: val})
	case ir.TagConversion:
		p := old.Payload.(ir.Conversion)
		dt, err := rw(p.DestType)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagConversion, ir.Conversion{DestType: dt, Value: val})
	case ir.TagComment:
		return a.Intern(old.Tag, old.Payload)
	case ir.TagDebugPrintf:
		p := old.Payload.(ir.DebugPrintf)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagDebugPrintf, ir.DebugPrintf{Mem: mem, Format: p.Format, Args: args})
	case ir.TagPushValueStack:
		p := old.Payload.(ir.PushValueStack)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagPushValueStack, ir.PushValueStack{Mem: mem, Value: val})
	case ir.TagPopValueStack:
		p := old.Payload.(ir.PopValueStack)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		ty, err := rw(p.Ty)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagPopValueStack, ir.PopValueStack{Mem: mem, Ty: ty})
	case ir.TagGetStackSize:
		p := old.Payload.(ir.GetStackSize)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagGetStackSize, ir.GetStackSize{Mem: mem})
	case ir.TagSetStackSize:
		p := old.Payload.(ir.SetStackSize)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagSetStackSize, ir.SetStackSize{Mem: mem, Value: val})
	case ir.TagExtInstr:
		p := old.Payload.(ir.ExtInstr)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagExtInstr, ir.ExtInstr{Mem: mem, Set: p.Set, Opcode: p.Opcode, Args: args})

	// --- Terminators ---
	case ir.TagReturn:
		p := old.Payload.(ir.Return)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagReturn, ir.Return{Mem: mem, Args: args})
	case ir.TagJump:
		p := old.Payload.(ir.Jump)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		target, err := rw(p.Target)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagJump, ir.Jump{Mem: mem, Target: target, Args: args})
	case ir.TagBranch:
		p := old.Payload.(ir.Branch)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		cond, err := rw(p.Cond)
		if err != nil {
			return nil, err
		}
		tj, err := rw(p.TrueJump)
		if err != nil {
			return nil, err
		}
		fj, err := rw(p.FalseJump)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagBranch, ir.Branch{Mem: mem, Cond: cond, TrueJump: tj, FalseJump: fj})
	case ir.TagSwitch:
		p := old.Payload.(ir.Switch)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		cases := make([]ir.SwitchCase, len(p.Cases))
		for i, c := range p.Cases {
			lit, err := rw(c.Literal)
			if err != nil {
				return nil, err
			}
			jmp, err := rw(c.Jump)
			if err != nil {
				return nil, err
			}
			cases[i] = ir.SwitchCase{Literal: lit, Jump: jmp}
		}
		def, err := rw(p.Default)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagSwitch, ir.Switch{Mem: mem, Value: val, Cases: cases, Default: def})
	case ir.TagUnreachable:
		return a.Intern(old.Tag, old.Payload)

	case ir.TagIf:
		p := old.Payload.(ir.If)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		cond, err := rw(p.Cond)
		if err != nil {
			return nil, err
		}
		trueBody, err := r.RewriteAbstraction(p.TrueBody)
		if err != nil {
			return nil, err
		}
		var falseBody *ir.Node
		if p.FalseBody != nil {
			falseBody, err = r.RewriteAbstraction(p.FalseBody)
			if err != nil {
				return nil, err
			}
		}
		tail, err := r.RewriteAbstraction(p.Tail)
		if err != nil {
			return nil, err
		}
		yields, err := rws(p.YieldTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagIf, ir.If{Mem: mem, Cond: cond, TrueBody: trueBody, FalseBody: falseBody, Tail: tail, YieldTypes: yields})
	case ir.TagMatch:
		p := old.Payload.(ir.Match)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		inspect, err := rw(p.Inspect)
		if err != nil {
			return nil, err
		}
		arms := make([]ir.MatchArm, len(p.Arms))
		for i, arm := range p.Arms {
			lits, err := rws(arm.Literals)
			if err != nil {
				return nil, err
			}
			body, err := r.RewriteAbstraction(arm.Body)
			if err != nil {
				return nil, err
			}
			arms[i] = ir.MatchArm{Literals: lits, Body: body, Default: arm.Default}
		}
		tail, err := r.RewriteAbstraction(p.Tail)
		if err != nil {
			return nil, err
		}
		yields, err := rws(p.YieldTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagMatch, ir.Match{Mem: mem, Inspect: inspect, Arms: arms, Tail: tail, YieldTypes: yields})
	case ir.TagLoop:
		p := old.Payload.(ir.Loop)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		body, err := r.RewriteAbstraction(p.Body)
		if err != nil {
			return nil, err
		}
		initArgs, err := rws(p.InitialArgs)
		if err != nil {
			return nil, err
		}
		tail, err := r.RewriteAbstraction(p.Tail)
		if err != nil {
			return nil, err
		}
		yields, err := rws(p.YieldTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagLoop, ir.Loop{Mem: mem, Body: body, InitialArgs: initArgs, Tail: tail, YieldTypes: yields})
	case ir.TagMergeSelection:
		p := old.Payload.(ir.MergeSelection)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagMergeSelection, ir.MergeSelection{Mem: mem, Args: args})
	case ir.TagMergeContinue:
		p := old.Payload.(ir.MergeContinue)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagMergeContinue, ir.MergeContinue{Mem: mem, Args: args})
	case ir.TagMergeBreak:
		p := old.Payload.(ir.MergeBreak)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagMergeBreak, ir.MergeBreak{Mem: mem, Args: args})
	case ir.TagTailCall:
		p := old.Payload.(ir.TailCall)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		callee, err := rw(p.Callee)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagTailCall, ir.TailCall{Mem: mem, Callee: callee, Args: args})
	case ir.TagJoin:
		p := old.Payload.(ir.Join)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		jp, err := rw(p.JP)
		if err != nil {
			return nil, err
		}
		args, err := rws(p.Args)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagJoin, ir.Join{Mem: mem, JP: jp, Args: args})
	case ir.TagControl:
		p := old.Payload.(ir.Control)
		mem, err := rw(p.Mem)
		if err != nil {
			return nil, err
		}
		body, err := r.RewriteAbstraction(p.Body)
		if err != nil {
			return nil, err
		}
		yields, err := rws(p.YieldTypes)
		if err != nil {
			return nil, err
		}
		return a.Intern(ir.TagControl, ir.Control{Mem: mem, Body: body, YieldTypes: yields})

	case ir.TagGlobalVariable:
		p := old.Payload.(*ir.GlobalVariablePayload)
		ty, err := rw(p.Ty)
		if err != nil {
			return nil, err
		}
		var init *ir.Node
		if p.Init != nil {
			init, err = rw(p.Init)
			if err != nil {
				return nil, err
			}
		}
		gv := a.NewDeclaration(ir.TagGlobalVariable, &ir.GlobalVariablePayload{Name: p.Name, Ty: ty, AddressSpace: p.AddressSpace, Init: init})
		r.Register(old, gv)
		return gv, nil
	case ir.TagConstant:
		p := old.Payload.(*ir.ConstantPayload)
		ty, err := rw(p.Ty)
		if err != nil {
			return nil, err
		}
		val, err := rw(p.Value)
		if err != nil {
			return nil, err
		}
		c := a.NewDeclaration(ir.TagConstant, &ir.ConstantPayload{Name: p.Name, Ty: ty, Value: val})
		r.Register(old, c)
		return c, nil
	case ir.TagNominalType:
		p := old.Payload.(*ir.NominalTypePayload)
		body, err := rw(p.Body)
		if err != nil {
			return nil, err
		}
		nt := a.NewDeclaration(ir.TagNominalType, &ir.NominalTypePayload{Name: p.Name, Body: body})
		r.Register(old, nt)
		return nt, nil

	case ir.TagFunction, ir.TagBasicBlock:
		panic(fmt.Sprintf("rewrite: RecreateNodeIdentity does not handle %s directly; use RecreateDeclHeaderIdentity/RewriteAbstraction", old.Tag))

	default:
		panic(fmt.Sprintf("rewrite: RecreateNodeIdentity: unhandled tag %s", old.Tag))
	}
}
