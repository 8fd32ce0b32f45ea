package lower

import (
	"strings"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// subgroupFirstLaneAlias is canonicalized into subgroup_broadcast with
// an explicit lane-0 index, since not every target has a dedicated
// "broadcast from the first active lane" instruction but every target
// that supports subgroup_broadcast at all can take a constant index.
const subgroupFirstLaneAlias = "subgroup_broadcast_first"

// LowerSubgroup canonicalizes "subgroup_*" PrimOp spellings that are
// sugar for a more general op with a fixed argument, so the emitter
// only needs to know one subgroup opcode per operation family
// (spec.md §4.G's subgroup.go).
func LowerSubgroup(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagPrimOp {
			return r.Default(old)
		}
		p := old.Payload.(ir.PrimOp)
		if !strings.HasPrefix(p.Op, "subgroup_") {
			return r.Default(old)
		}
		args, err := r.RewriteNodes(p.Args)
		if err != nil {
			return nil, err
		}
		if p.Op == subgroupFirstLaneAlias {
			zero := dstArena.IntLit(dstArena.IntType(32, false), 0)
			return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: "subgroup_broadcast", Args: append(args, zero)})
		}
		return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: p.Op, Args: args})
	}

	rw := rewrite.New(src, dst, dstArena, process)
	for _, d := range src.Decls {
		nd, err := rw.RewriteNode(d)
		if err != nil {
			return nil, nil, err
		}
		dst.AddDecl(nd)
	}
	dst.Seal()
	return dstArena, dst, nil
}
