package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
)

// buildDiamondCFG builds an unstructured diamond: entry branches to
// blockA/blockB, both jump to a shared join block that returns. This
// is the Jump/Branch-only shape analysis.Build expects, i.e. a function
// restructure.ScopeToControl has not yet structured (spec.md §4.E).
func buildDiamondCFG(t *testing.T) *ir.Node {
	t.Helper()
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	qi32 := a.Qualified(i32, true)

	r := a.Param(qi32, "r", 0)
	join := a.NewBasicBlock([]*ir.Node{r})
	joinRet := a.MustIntern(ir.TagReturn, ir.Return{Mem: nil, Args: []*ir.Node{r}})
	join.Payload.(*ir.BasicBlockPayload).SetBody(joinRet)

	jumpFromA := a.MustIntern(ir.TagJump, ir.Jump{Mem: nil, Target: join, Args: []*ir.Node{a.IntLit(i32, 1)}})
	blockA := a.NewBasicBlock(nil)
	blockA.Payload.(*ir.BasicBlockPayload).SetBody(jumpFromA)

	jumpFromB := a.MustIntern(ir.TagJump, ir.Jump{Mem: nil, Target: join, Args: []*ir.Node{a.IntLit(i32, 2)}})
	blockB := a.NewBasicBlock(nil)
	blockB.Payload.(*ir.BasicBlockPayload).SetBody(jumpFromB)

	trueJump := a.MustIntern(ir.TagJump, ir.Jump{Mem: nil, Target: blockA, Args: nil})
	falseJump := a.MustIntern(ir.TagJump, ir.Jump{Mem: nil, Target: blockB, Args: nil})
	branch := a.MustIntern(ir.TagBranch, ir.Branch{Mem: nil, Cond: a.BoolLit(true), TrueJump: trueJump, FalseJump: falseJump})

	fn := a.NewFunction("f", nil, []*ir.Node{qi32}, nil)
	fn.Payload.(*ir.FunctionPayload).SetBody(branch)
	return fn
}

func TestBuild_DiamondDominators(t *testing.T) {
	fn := buildDiamondCFG(t)

	g, err := analysis.Build(fn)
	require.NoError(t, err)

	// entry, blockA, blockB, join: four nodes.
	assert.Len(t, g.Nodes(), 4)
	assert.True(t, analysis.IsReducible(g), "an acyclic diamond is trivially reducible")

	var join *analysis.CFNode
	for _, n := range g.Nodes() {
		if len(n.Predecessors()) == 2 {
			join = n
		}
	}
	require.NotNil(t, join, "expected a join node with two predecessors")

	// The join block is dominated by entry (every path to it passes
	// through entry) but not by either arm individually.
	assert.True(t, g.Dominates(g.Entry, join))
	for _, pred := range join.Predecessors() {
		assert.False(t, g.Dominates(pred, join), "neither diamond arm alone dominates the join")
	}
}

func TestBuild_RejectsStructuredTerminator(t *testing.T) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	qi32 := a.Qualified(i32, true)

	unreachable := a.NewBasicBlock(nil)
	unreachable.Payload.(*ir.BasicBlockPayload).SetBody(a.Unreachable())
	cond := a.BoolLit(true)
	ifTerm := a.MustIntern(ir.TagIf, ir.If{
		Mem: nil, Cond: cond,
		TrueBody:  unreachable,
		FalseBody: unreachable,
		Tail:      unreachable,
	})

	fn := a.NewFunction("f", nil, []*ir.Node{qi32}, nil)
	fn.Payload.(*ir.FunctionPayload).SetBody(ifTerm)

	_, err := analysis.Build(fn)
	assert.Error(t, err, "analysis.Build must reject still-structured terminators")
}
