package lower

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/diag"
	"github.com/sunholo/shadeir/internal/ir"
)

// LiftIndirectTargets (lift_indirect_targets, spec.md §4.H) rejects
// the module with an Unsupported diagnostic when some Function's
// address is captured (analysis.CGNode.IsAddressCaptured) and some
// call site calls through a callee that is not a FnAddr
// (analysis.CGNode.CallsIndirect); otherwise it copies the module
// unchanged. It builds no function-pointer dispatch table: captured
// functions are not given dense indices and indirect Calls are not
// rewritten into a compare-and-branch chain.
func LiftIndirectTargets(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	cg := analysis.BuildCallGraph(src)

	for _, n := range cg.Nodes() {
		if !n.IsAddressCaptured {
			continue
		}
		for _, caller := range cg.Nodes() {
			if caller.CallsIndirect {
				return nil, nil, diag.Unsupported("lift_indirect_targets", "indirect call site not yet lowered to a dispatch table")
			}
		}
	}

	return identityCopy(srcArena, src, dstArena, dst)
}

// SpecializeExecutionModel applies cfg.Specialization.EntryPoint's
// execution-model-specific legalization. This port models every
// shader stage identically at the IR level (no ExecutionModel-tagged
// types or per-stage builtin legality table), so there is currently
// nothing stage-specific to rewrite; the pass exists as a named,
// documented no-op placeholder in the pipeline's ordering
// (specialize_execution_model, spec.md §4.H) rather than a silently
// skipped step, so a future per-stage rule has an obvious home.
func SpecializeExecutionModel(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	return identityCopy(srcArena, src, dstArena, dst)
}
