package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/irtypes"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// LowerFill expands a "fill" PrimOp (broadcast a single scalar into
// every lane of a pack/array type) into an explicit "composite_construct"
// PrimOp listing the scalar once per lane, for targets with no native
// splat instruction (spec.md §4.G's fill.go).
func LowerFill(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagPrimOp {
			return r.Default(old)
		}
		p := old.Payload.(ir.PrimOp)
		if p.Op != "fill" || len(p.Args) != 1 || old.Type == nil {
			return r.Default(old)
		}
		scalar, err := r.RewriteNode(p.Args[0])
		if err != nil {
			return nil, err
		}
		lanes := laneCount(old.Type)
		if lanes <= 0 {
			return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: p.Op, Args: []*ir.Node{scalar}})
		}
		args := make([]*ir.Node, lanes)
		for i := range args {
			args[i] = scalar
		}
		return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: "composite_construct", Args: args})
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

func laneCount(ty *ir.Node) int {
	ty = irtypes.GetUnqualifiedType(ty)
	switch p := ty.Payload.(type) {
	case ir.PackType:
		return p.Width
	case ir.ArrType:
		return int(p.Size)
	default:
		return -1
	}
}
