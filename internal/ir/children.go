package ir

// Children returns every direct operand/child Node of n in a stable,
// deterministic order (declaration order of the payload's fields).
// Abstraction bodies (Function.Body, BasicBlock.Body) are included so
// a naive walker reaches every node in a module. A declaration an
// operand refers to is a child as well: a FnAddr's child is the
// Function it names, whose own children are its params and body, so a
// walker that does not stop at Function nodes descends from one
// function's body into the body of every function it references.
//
// Grounded on the teacher's internal/core/traverse.go generic AST-walk
// dispatch, generalized here from Core ANF's small node set to this
// IR's ~30 payload shapes.
func Children(n *Node) []*Node {
	return compact(children(n))
}

// compact drops nil entries, which occur for mem fields of the first
// effectful instruction in a block with no incoming mem token.
func compact(ns []*Node) []*Node {
	out := ns[:0]
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func children(n *Node) []*Node {
	switch p := n.Payload.(type) {
	case IntType, FloatType, BoolType:
		return nil
	case PtrType:
		return []*Node{p.Pointee}
	case ArrType:
		return []*Node{p.Element}
	case PackType:
		return []*Node{p.Element}
	case RecordType:
		return append([]*Node{}, p.Members...)
	case FnType:
		out := append([]*Node{}, p.ParamTypes...)
		return append(out, p.ReturnTypes...)
	case JoinPointType:
		return append([]*Node{}, p.YieldTypes...)
	case QualifiedType:
		return []*Node{p.Inner}

	case Param:
		return []*Node{p.QType}
	case FnAddr:
		return []*Node{p.Fn}
	case IntLit:
		return []*Node{p.IntTy}
	case FloatLit:
		return []*Node{p.FloatTy}
	case BoolLit:
		return nil
	case Undef:
		return []*Node{p.Ty}
	case NullPtr:
		return []*Node{p.PtrTy}

	case Call:
		out := []*Node{p.Mem, p.Callee}
		return append(out, p.Args...)
	case PrimOp:
		return append([]*Node{}, p.Args...)
	case Load:
		return []*Node{p.Mem, p.Pointer}
	case Store:
		return []*Node{p.Mem, p.Pointer, p.Value}
	case LocalAlloc:
		return []*Node{p.Mem, p.Elem}
	case StackAlloc:
		return []*Node{p.Mem, p.Elem}
	case Lea:
		out := []*Node{p.Base}
		return append(out, p.Offsets...)
	case Memcpy:
		return []*Node{p.Mem, p.Dst, p.Src, p.Size}
	case ReinterpretCast:
		return []*Node{p.DestType, p.Value}
	case Conversion:
		return []*Node{p.DestType, p.Value}
	case Comment:
		return nil
	case DebugPrintf:
		out := []*Node{p.Mem}
		return append(out, p.Args...)
	case PushValueStack:
		return []*Node{p.Mem, p.Value}
	case PopValueStack:
		return []*Node{p.Mem, p.Ty}
	case GetStackSize:
		return []*Node{p.Mem}
	case SetStackSize:
		return []*Node{p.Mem, p.Value}
	case ExtInstr:
		out := []*Node{p.Mem}
		return append(out, p.Args...)

	case Return:
		out := []*Node{p.Mem}
		return append(out, p.Args...)
	case Jump:
		out := []*Node{p.Mem, p.Target}
		return append(out, p.Args...)
	case Branch:
		return []*Node{p.Mem, p.Cond, p.TrueJump, p.FalseJump}
	case Switch:
		out := []*Node{p.Mem, p.Value}
		for _, c := range p.Cases {
			out = append(out, c.Literal, c.Jump)
		}
		return append(out, p.Default)
	case If:
		out := []*Node{p.Mem, p.Cond, p.TrueBody}
		if p.FalseBody != nil {
			out = append(out, p.FalseBody)
		}
		return append(out, p.Tail)
	case Match:
		out := []*Node{p.Mem, p.Inspect}
		for _, a := range p.Arms {
			out = append(out, a.Literals...)
			out = append(out, a.Body)
		}
		return append(out, p.Tail)
	case Loop:
		out := []*Node{p.Mem, p.Body}
		out = append(out, p.InitialArgs...)
		return append(out, p.Tail)
	case MergeSelection:
		out := []*Node{p.Mem}
		return append(out, p.Args...)
	case MergeContinue:
		out := []*Node{p.Mem}
		return append(out, p.Args...)
	case MergeBreak:
		out := []*Node{p.Mem}
		return append(out, p.Args...)
	case TailCall:
		out := []*Node{p.Mem, p.Callee}
		return append(out, p.Args...)
	case Join:
		out := []*Node{p.Mem, p.JP}
		return append(out, p.Args...)
	case Control:
		return []*Node{p.Mem, p.Body}
	case Unreachable:
		return nil

	case *FunctionPayload:
		out := append([]*Node{}, p.Params...)
		if p.Body != nil {
			out = append(out, p.Body)
		}
		return out
	case *BasicBlockPayload:
		out := append([]*Node{}, p.Params...)
		if p.Body != nil {
			out = append(out, p.Body)
		}
		return out
	case *GlobalVariablePayload:
		out := []*Node{p.Ty}
		if p.Init != nil {
			out = append(out, p.Init)
		}
		return out
	case *ConstantPayload:
		return []*Node{p.Ty, p.Value}
	case *NominalTypePayload:
		return []*Node{p.Body}
	}
	return nil
}
