package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// DecayPtrs rewrites every concrete-address-space pointer type into a
// generic one, the mirror image of ptrs.go's narrowing: instead of
// inferring a concrete space from provenance, every pointer is widened
// so a single physical load/store implementation can serve all of
// them (config.Lower.DecayPtrs, spec.md §4.G decay.go). A target that
// needs the reverse (narrowing back down before emission) runs
// LowerGenericPtrs afterward instead.
func DecayPtrs(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	if cfg == nil || !cfg.Lower.DecayPtrs {
		return identityCopy(srcArena, src, dstArena, dst)
	}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag == ir.TagPtrType {
			p := old.Payload.(ir.PtrType)
			pointee, err := r.RewriteNode(p.Pointee)
			if err != nil {
				return nil, err
			}
			return dstArena.PtrType(genericAS, pointee), nil
		}
		return r.Default(old)
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
