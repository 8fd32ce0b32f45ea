package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
)

// EliminateInlineableConstants re-interns a module into a fresh arena
// carrying the same arena.Flags.AllowFold fold hook as srcArena
// (eliminate_inlineable_constants, spec.md §4.H). The actual folding
// happens inside arena.Intern itself: every PrimOp/Conversion rebuilt
// by the identity rewrite passes back through the same fold hook that
// built it the first time, so a PrimOp whose arguments have since
// become literals (e.g. after opt_inline substitutes a constant
// argument) collapses here without this pass needing its own
// arithmetic. A source arena with no fold hook installed makes this
// pass a plain identity copy.
func EliminateInlineableConstants(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	return identityCopy(srcArena, src, dstArena, dst)
}
