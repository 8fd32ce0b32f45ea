package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/irtypes"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// physicalPointerWidth is the bit width a decayed/physical pointer is
// emulated with, matching the generic-address-space layout layout.go
// assumes for offset arithmetic.
const physicalPointerWidth = 64

// LowerNullPtr rewrites NullPtr into a concrete zero integer
// reinterpreted as a pointer, for targets emulating physical memory
// (config.Lower.EmulatePhysicalMemory) where a pointer value really is
// just an integer offset and has no distinguished null representation
// at the hardware level.
func LowerNullPtr(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	if cfg == nil || !cfg.Lower.EmulatePhysicalMemory {
		return identityCopy(srcArena, src, dstArena, dst)
	}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagNullPtr {
			return r.Default(old)
		}
		p := old.Payload.(ir.NullPtr)
		nty, err := r.RewriteNode(p.PtrTy)
		if err != nil {
			return nil, err
		}
		zero := dstArena.IntLit(dstArena.IntType(physicalPointerWidth, false), 0)
		return dstArena.Intern(ir.TagReinterpretCast, ir.ReinterpretCast{DestType: irtypes.GetUnqualifiedType(nty), Value: zero})
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
