package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/spvb"
)

// TestEmitModule_TrivialReturn covers spec.md §8 scenario 1: a
// function whose body is nothing but `return;`.
func TestEmitModule_TrivialReturn(t *testing.T) {
	a := arena.New(arena.Flags{})
	fn := a.NewFunction("f", nil, nil, nil)
	ret, err := a.Intern(ir.TagReturn, ir.Return{Mem: nil, Args: nil})
	require.NoError(t, err)
	fn.Payload.(*ir.FunctionPayload).SetBody(ret)

	mod := ir.NewModule("m", a)
	mod.AddDecl(fn)
	mod.Seal()

	mb, err := EmitModule(mod)
	require.NoError(t, err)
	require.Len(t, mb.Fns(), 1)

	blocks := mb.Fns()[0].Blocks()
	require.Len(t, blocks, 1, "a function with no branching emits exactly one block")
	entry := blocks[0]
	require.NotNil(t, entry.Terminator)
	assert.Equal(t, spvb.OpReturn, entry.Terminator.Op)
	assert.Empty(t, entry.Body)
	assert.Empty(t, entry.Phis)
}

func mustUnreachableBlock(a *arena.Arena) *ir.Node {
	bb := a.NewBasicBlock(nil)
	bb.Payload.(*ir.BasicBlockPayload).SetBody(a.Unreachable())
	return bb
}

// buildSumLoop constructs the structured IR a restructured
// `fn sum(bound: int) -> int { var i=0; var acc=0; while i<bound {
// acc+=i; i+=1; } return acc; }` would lower to: a Loop whose Body is
// an If that either MergeContinue's with the updated carried values
// or MergeBreak's into the Loop's Tail with the final accumulator.
// Hand-built directly against the shape restructure.ScopeToControl
// itself produces, since the surface-syntax parser is out of scope
// (spec.md §1).
func buildSumLoop(t *testing.T) (*arena.Arena, *ir.Module) {
	t.Helper()
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	qi32 := a.Qualified(i32, true)

	bound := a.Param(qi32, "bound", 0)
	fn := a.NewFunction("sum", []*ir.Node{bound}, []*ir.Node{qi32}, nil)

	iParam := a.Param(qi32, "i", 0)
	accParam := a.Param(qi32, "acc", 1)
	loopBody := a.NewBasicBlock([]*ir.Node{iParam, accParam})

	result := a.Param(qi32, "result", 0)
	tail := a.NewBasicBlock([]*ir.Node{result})
	tailRet, err := a.Intern(ir.TagReturn, ir.Return{Mem: nil, Args: []*ir.Node{result}})
	require.NoError(t, err)
	tail.Payload.(*ir.BasicBlockPayload).SetBody(tailRet)

	cond, err := a.Intern(ir.TagPrimOp, ir.PrimOp{Op: "icmp_slt", Args: []*ir.Node{iParam, bound}})
	require.NoError(t, err)

	sum, err := a.Intern(ir.TagPrimOp, ir.PrimOp{Op: "iadd", Args: []*ir.Node{accParam, iParam}})
	require.NoError(t, err)
	one := a.IntLit(i32, 1)
	nextI, err := a.Intern(ir.TagPrimOp, ir.PrimOp{Op: "iadd", Args: []*ir.Node{iParam, one}})
	require.NoError(t, err)
	cont, err := a.Intern(ir.TagMergeContinue, ir.MergeContinue{Mem: nil, Args: []*ir.Node{nextI, sum}})
	require.NoError(t, err)
	trueBody := a.NewBasicBlock(nil)
	trueBody.Payload.(*ir.BasicBlockPayload).SetBody(cont)

	brk, err := a.Intern(ir.TagMergeBreak, ir.MergeBreak{Mem: nil, Args: []*ir.Node{accParam}})
	require.NoError(t, err)
	falseBody := a.NewBasicBlock(nil)
	falseBody.Payload.(*ir.BasicBlockPayload).SetBody(brk)

	ifTerm, err := a.Intern(ir.TagIf, ir.If{
		Mem:       nil,
		Cond:      cond,
		TrueBody:  trueBody,
		FalseBody: falseBody,
		Tail:      mustUnreachableBlock(a), // both arms always take MergeContinue/MergeBreak
	})
	require.NoError(t, err)
	loopBody.Payload.(*ir.BasicBlockPayload).SetBody(ifTerm)

	zero := a.IntLit(i32, 0)
	loop, err := a.Intern(ir.TagLoop, ir.Loop{
		Mem:         nil,
		Body:        loopBody,
		InitialArgs: []*ir.Node{zero, zero},
		Tail:        tail,
		YieldTypes:  []*ir.Node{qi32},
	})
	require.NoError(t, err)
	fn.Payload.(*ir.FunctionPayload).SetBody(loop)

	mod := ir.NewModule("m", a)
	mod.AddDecl(fn)
	mod.Seal()
	return a, mod
}

// TestEmitModule_SumLoop covers spec.md §8 scenario 2.
func TestEmitModule_SumLoop(t *testing.T) {
	_, mod := buildSumLoop(t)

	mb, err := EmitModule(mod)
	require.NoError(t, err)
	require.Len(t, mb.Fns(), 1)

	blocks := mb.Fns()[0].Blocks()
	// entry, header, body(If-selector), true-arm, false-arm,
	// continue, next(tail), plus the If's own unreachable tail: at
	// least eight distinct blocks.
	assert.GreaterOrEqual(t, len(blocks), 8)

	var header *spvb.Block
	for _, b := range blocks {
		for _, instr := range b.Body {
			if instr.Op == spvb.OpLoopMerge {
				header = b
			}
		}
	}
	require.NotNil(t, header, "no block emitted OpLoopMerge")
	require.Len(t, header.Phis, 2, "header gets one phi per loop-carried param")
	for _, phi := range header.Phis {
		assert.Len(t, phi.Sources, 2, "header phi has an initial source and a continue-back source")
	}

	var selector *spvb.Block
	for _, b := range blocks {
		if b.Terminator != nil && b.Terminator.Op == spvb.OpBranchConditional {
			selector = b
		}
	}
	require.NotNil(t, selector, "the loop body's If never emitted OpBranchConditional")

	var nextBlock *spvb.Block
	for _, b := range blocks {
		if len(b.Phis) == 1 && b.Terminator != nil && b.Terminator.Op == spvb.OpReturnValue {
			nextBlock = b
		}
	}
	require.NotNil(t, nextBlock, "the loop's next/tail block never returned the accumulated phi")
	require.Len(t, nextBlock.Phis[0].Sources, 1, "the next block's yield phi has exactly one MergeBreak source")
}

// TestEmitModule_SharedJumpTargetEmittedOnce covers
// restructure.ScopeToControl's getOrBuild sharing guarantee: two
// independent Jump sites resolving to the identical structured
// successor node must still see exactly one reserved block, with both
// jumps' arguments registered as phi sources on it — not a separate
// reservation (and a separate, invariant-violating re-emission) per
// reaching site.
func TestEmitModule_SharedJumpTargetEmittedOnce(t *testing.T) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	qi32 := a.Qualified(i32, true)

	resultParam := a.Param(qi32, "r", 0)
	shared := a.NewBasicBlock([]*ir.Node{resultParam})
	sharedRet, err := a.Intern(ir.TagReturn, ir.Return{Mem: nil, Args: []*ir.Node{resultParam}})
	require.NoError(t, err)
	shared.Payload.(*ir.BasicBlockPayload).SetBody(sharedRet)

	jumpA, err := a.Intern(ir.TagJump, ir.Jump{Mem: nil, Target: shared, Args: []*ir.Node{a.IntLit(i32, 1)}})
	require.NoError(t, err)
	blockA := a.NewBasicBlock(nil)
	blockA.Payload.(*ir.BasicBlockPayload).SetBody(jumpA)

	jumpB, err := a.Intern(ir.TagJump, ir.Jump{Mem: nil, Target: shared, Args: []*ir.Node{a.IntLit(i32, 2)}})
	require.NoError(t, err)
	blockB := a.NewBasicBlock(nil)
	blockB.Payload.(*ir.BasicBlockPayload).SetBody(jumpB)

	trueJump, err := a.Intern(ir.TagJump, ir.Jump{Mem: nil, Target: blockA, Args: nil})
	require.NoError(t, err)
	falseJump, err := a.Intern(ir.TagJump, ir.Jump{Mem: nil, Target: blockB, Args: nil})
	require.NoError(t, err)
	branch, err := a.Intern(ir.TagBranch, ir.Branch{Mem: nil, Cond: a.BoolLit(true), TrueJump: trueJump, FalseJump: falseJump})
	require.NoError(t, err)

	fn := a.NewFunction("f", nil, []*ir.Node{qi32}, nil)
	fn.Payload.(*ir.FunctionPayload).SetBody(branch)

	mod := ir.NewModule("m", a)
	mod.AddDecl(fn)
	mod.Seal()

	mb, err := EmitModule(mod)
	require.NoError(t, err)

	var sharedBlock *spvb.Block
	var returns int
	for _, b := range mb.Fns()[0].Blocks() {
		if b.Terminator != nil && b.Terminator.Op == spvb.OpReturnValue && len(b.Phis) == 1 {
			returns++
			sharedBlock = b
		}
	}
	assert.Equal(t, 1, returns, "the shared successor's Return must be emitted exactly once")
	require.NotNil(t, sharedBlock)
	assert.Len(t, sharedBlock.Phis[0].Sources, 2, "both jumps must contribute a phi source to the shared block")
}
