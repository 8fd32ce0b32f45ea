package lower

import (
	"strings"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// maskOpLowering maps the execution-mask PrimOps a shader front end
// emits to the plain bitwise PrimOps every target's arithmetic ISA
// already has, once a mask is just an integer bitset with one bit per
// lane (spec.md §4.G's mask.go). Both sides are pure PrimOps, so this
// stays a value-level rewrite with no mem-chain involved.
var maskOpLowering = map[string]string{
	"mask_and":     "bitwise_and",
	"mask_or":      "bitwise_or",
	"mask_not":     "bitwise_not",
	"mask_is_thread_active": "bit_extract",
}

// LowerMask rewrites "mask_*" PrimOps into their plain-bitwise
// equivalents wherever a 1:1 mapping exists; ops with no listed
// replacement (e.g. target-specific mask queries) pass through
// unchanged for the emitter to handle directly.
func LowerMask(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagPrimOp {
			return r.Default(old)
		}
		p := old.Payload.(ir.PrimOp)
		if !strings.HasPrefix(p.Op, "mask_") {
			return r.Default(old)
		}
		newOp, ok := maskOpLowering[p.Op]
		if !ok {
			return r.Default(old)
		}
		args, err := r.RewriteNodes(p.Args)
		if err != nil {
			return nil, err
		}
		return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: newOp, Args: args})
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
