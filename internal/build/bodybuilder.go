// Package build implements the BodyBuilder of spec.md §4.D: staged,
// imperative construction of a basic-block body while threading the
// current mem token through every effectful instruction.
//
// Grounded on the teacher's internal/pipeline/op_lowering.go staged
// rebuilding of core.Let chains (each new binding wraps the
// previous body) and on internal/eval_harness's pattern of building
// up an artifact imperatively before a single "finish" call.
package build

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
)

// BodyBuilder accumulates instructions and their mem-chain, finally
// wrapping them around a Terminator. It mutates no arena state itself
// except by calling through to Intern — every intermediate step is
// just bookkeeping in the builder.
type BodyBuilder struct {
	a         *arena.Arena
	mem       *ir.Node // current mem token
	cancelled bool

	// instrs, in order, with the mem predecessor each observed —
	// only used by finish_body style callers that want to review the
	// sequence before wrapping it (gen_comment and friends don't
	// themselves need this, but debug tooling does).
	instrs []*ir.Node
}

// BeginBodyWithMem starts a builder continuing the mem chain from an
// existing token (e.g. a BasicBlock's Param or another body's final
// mem), for building side effects that must order after it.
func BeginBodyWithMem(a *arena.Arena, mem *ir.Node) *BodyBuilder {
	return &BodyBuilder{a: a, mem: mem}
}

// BeginBlockWithSideEffects starts a builder whose first effectful
// instruction has no predecessor (entry of a function/abstraction);
// mem starts nil and the first Gen* call establishes it.
func BeginBlockWithSideEffects(a *arena.Arena) *BodyBuilder {
	return &BodyBuilder{a: a}
}

// CancelBody marks the builder discarded; further use is a programmer
// error, matching spec.md's "discards" description literally — nothing
// built so far was observable outside this builder, so there is
// nothing to undo in the arena (hash-consed nodes with no remaining
// reference are simply unreachable garbage once the arena is freed).
func (b *BodyBuilder) CancelBody() { b.cancelled = true }

func (b *BodyBuilder) mustBeLive() {
	if b.cancelled {
		panic("build: use of a cancelled BodyBuilder")
	}
}

// Mem returns the builder's current mem token.
func (b *BodyBuilder) Mem() *ir.Node { return b.mem }

// GenCall appends a Call, threading mem.
func (b *BodyBuilder) GenCall(callee *ir.Node, args []*ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagCall, ir.Call{Mem: b.mem, Callee: callee, Args: args})
	if err != nil {
		return nil, err
	}
	b.mem = n
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenPrimOp appends a pure PrimOp; it does not thread mem.
func (b *BodyBuilder) GenPrimOp(op string, args []*ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagPrimOp, ir.PrimOp{Op: op, Args: args})
	if err != nil {
		return nil, err
	}
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenLoad appends a Load, threading mem.
func (b *BodyBuilder) GenLoad(ptr *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagLoad, ir.Load{Mem: b.mem, Pointer: ptr})
	if err != nil {
		return nil, err
	}
	b.mem = n
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenStore appends a Store, threading mem.
func (b *BodyBuilder) GenStore(ptr, val *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagStore, ir.Store{Mem: b.mem, Pointer: ptr, Value: val})
	if err != nil {
		return nil, err
	}
	b.mem = n
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenPushValueStack appends a PushValueStack, threading mem.
func (b *BodyBuilder) GenPushValueStack(val *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagPushValueStack, ir.PushValueStack{Mem: b.mem, Value: val})
	if err != nil {
		return nil, err
	}
	b.mem = n
	return n, nil
}

// GenPopValueStack appends a PopValueStack, threading mem.
func (b *BodyBuilder) GenPopValueStack(ty *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagPopValueStack, ir.PopValueStack{Mem: b.mem, Ty: ty})
	if err != nil {
		return nil, err
	}
	b.mem = n
	return n, nil
}

// GenGetStackSize appends a GetStackSize, threading mem.
func (b *BodyBuilder) GenGetStackSize() (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagGetStackSize, ir.GetStackSize{Mem: b.mem})
	if err != nil {
		return nil, err
	}
	b.mem = n
	return n, nil
}

// GenSetStackSize appends a SetStackSize, threading mem.
func (b *BodyBuilder) GenSetStackSize(val *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagSetStackSize, ir.SetStackSize{Mem: b.mem, Value: val})
	if err != nil {
		return nil, err
	}
	b.mem = n
	return n, nil
}

// GenReinterpretCast appends a (pure) ReinterpretCast.
func (b *BodyBuilder) GenReinterpretCast(destType, val *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagReinterpretCast, ir.ReinterpretCast{DestType: destType, Value: val})
	if err != nil {
		return nil, err
	}
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenConversion appends a (pure) Conversion.
func (b *BodyBuilder) GenConversion(destType, val *ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagConversion, ir.Conversion{DestType: destType, Value: val})
	if err != nil {
		return nil, err
	}
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenComment appends a no-op annotation.
func (b *BodyBuilder) GenComment(text string) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagComment, ir.Comment{Text: text})
	if err != nil {
		return nil, err
	}
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenDebugPrintf appends a debug-only side-effecting print, threading mem.
func (b *BodyBuilder) GenDebugPrintf(format string, args []*ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagDebugPrintf, ir.DebugPrintf{Mem: b.mem, Format: format, Args: args})
	if err != nil {
		return nil, err
	}
	b.mem = n
	b.instrs = append(b.instrs, n)
	return n, nil
}

// GenExtInstr appends a vendor extended instruction, threading mem.
func (b *BodyBuilder) GenExtInstr(set, opcode string, args []*ir.Node) (*ir.Node, error) {
	b.mustBeLive()
	n, err := b.a.Intern(ir.TagExtInstr, ir.ExtInstr{Mem: b.mem, Set: set, Opcode: opcode, Args: args})
	if err != nil {
		return nil, err
	}
	b.mem = n
	b.instrs = append(b.instrs, n)
	return n, nil
}

// FinishBody closes the builder with a terminator the caller has
// already built (referencing b.Mem() as its own Mem field), returning
// that same terminator for convenience chaining.
func (b *BodyBuilder) FinishBody(terminator *ir.Node) *ir.Node {
	b.mustBeLive()
	if terminator.Tag.Category() != ir.CatTerminator {
		panic(fmt.Sprintf("build: FinishBody requires a Terminator, got %s", terminator.Tag))
	}
	b.cancelled = true // a finished builder cannot be reused
	return terminator
}

// YieldValuesAndWrapInBlock builds a fresh zero-parameter BasicBlock
// whose body is a MergeSelection/MergeBreak/MergeContinue-style yield
// of values — the common "tail" shape If/Match/Loop wrap their
// continuation in.
func (b *BodyBuilder) YieldValuesAndWrapInBlock(terminator *ir.Node) *ir.Node {
	bb := b.a.NewBasicBlock(nil)
	bb.Payload.(*ir.BasicBlockPayload).SetBody(b.FinishBody(terminator))
	return bb
}
