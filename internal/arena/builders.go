package arena

import "github.com/sunholo/shadeir/internal/ir"

// Convenience constructors for the scalar/aggregate types every pass
// needs repeatedly. Kept thin: each just interns the matching payload.

func (a *Arena) IntType(width int, signed bool) *ir.Node {
	return a.MustIntern(ir.TagIntType, ir.IntType{Width: width, Signed: signed})
}

func (a *Arena) FloatType(width int) *ir.Node {
	return a.MustIntern(ir.TagFloatType, ir.FloatType{Width: width})
}

func (a *Arena) BoolType() *ir.Node {
	return a.MustIntern(ir.TagBoolType, ir.BoolType{})
}

func (a *Arena) PtrType(addressSpace string, pointee *ir.Node) *ir.Node {
	return a.MustIntern(ir.TagPtrType, ir.PtrType{AddressSpace: addressSpace, Pointee: pointee})
}

func (a *Arena) ArrType(elem *ir.Node, size int64) *ir.Node {
	return a.MustIntern(ir.TagArrType, ir.ArrType{Element: elem, Size: size})
}

func (a *Arena) PackType(elem *ir.Node, width int) *ir.Node {
	return a.MustIntern(ir.TagPackType, ir.PackType{Element: elem, Width: width})
}

func (a *Arena) RecordType(members []*ir.Node) *ir.Node {
	return a.MustIntern(ir.TagRecordType, ir.RecordType{Members: members})
}

func (a *Arena) FnType(params, returns []*ir.Node) *ir.Node {
	return a.MustIntern(ir.TagFnType, ir.FnType{ParamTypes: params, ReturnTypes: returns})
}

func (a *Arena) JoinPointType(yields []*ir.Node) *ir.Node {
	return a.MustIntern(ir.TagJoinPointType, ir.JoinPointType{YieldTypes: yields})
}

func (a *Arena) Qualified(inner *ir.Node, uniform bool) *ir.Node {
	return a.MustIntern(ir.TagQualifiedType, ir.QualifiedType{Inner: inner, Uniform: uniform})
}

// QualifiedTypeHelper wraps ty in a Qualified node, matching the
// rewriter's habit of always producing a value's direct type qualified
// (invariant 3, spec.md §3).
func (a *Arena) QualifiedTypeHelper(ty *ir.Node, uniform bool) *ir.Node {
	return a.Qualified(ty, uniform)
}

func (a *Arena) Param(qtype *ir.Node, name string, slot uint64) *ir.Node {
	return a.MustIntern(ir.TagParam, ir.Param{QType: qtype, Name: name, Slot: slot})
}

func (a *Arena) IntLit(intTy *ir.Node, v int64) *ir.Node {
	return a.MustIntern(ir.TagIntLit, ir.IntLit{IntTy: intTy, Value: v})
}

func (a *Arena) BoolLit(v bool) *ir.Node {
	return a.MustIntern(ir.TagBoolLit, ir.BoolLit{Value: v})
}

func (a *Arena) Undef(ty *ir.Node) *ir.Node {
	return a.MustIntern(ir.TagUndef, ir.Undef{Ty: ty})
}

func (a *Arena) FnAddr(fn *ir.Node) *ir.Node {
	return a.MustIntern(ir.TagFnAddr, ir.FnAddr{Fn: fn})
}

func (a *Arena) Unreachable() *ir.Node {
	return a.MustIntern(ir.TagUnreachable, ir.Unreachable{})
}

// NewFunction allocates a Function declaration header (params and
// return types fixed, body unset) for two-phase construction: the
// caller sets the body later. It is not added to any module.
func (a *Arena) NewFunction(name string, params, returnTypes []*ir.Node, annotations []ir.Annotation) *ir.Node {
	return a.NewDeclaration(ir.TagFunction, &ir.FunctionPayload{
		Name:        name,
		Params:      params,
		ReturnTypes: returnTypes,
		Annotations: annotations,
	})
}

// NewBasicBlock allocates a BasicBlock header with body unset.
func (a *Arena) NewBasicBlock(params []*ir.Node) *ir.Node {
	return a.NewDeclaration(ir.TagBasicBlock, &ir.BasicBlockPayload{Params: params})
}
