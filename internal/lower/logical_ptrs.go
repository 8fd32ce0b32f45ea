package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// logicalAS is the address space a pointer carries before physical
// memory emulation assigns it a concrete, byte-addressable one.
const logicalAS = "logical"

// physicalAS is the single concrete address space every logical
// pointer collapses into once physical memory is emulated: one flat
// buffer all StackAlloc/LocalAlloc storage and Lea arithmetic share.
const physicalAS = "physical"

// LowerLogicalPointers rewrites every "logical" pointer type to
// "physical" once cfg.Lower.EmulatePhysicalMemory is set
// (lower_logical_pointers, spec.md §4.H), the precondition LowerAlloca
// and LowerMemcpy's Lea-offset arithmetic assume: a logical pointer has
// no notion of byte offset, so nothing downstream can legalize a Lea
// through one. Pointers in any other address space (already physical,
// or still generic pending decay.go) pass through unchanged.
func LowerLogicalPointers(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	if cfg == nil || !cfg.Lower.EmulatePhysicalMemory {
		return identityCopy(srcArena, src, dstArena, dst)
	}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag == ir.TagPtrType {
			p := old.Payload.(ir.PtrType)
			if p.AddressSpace == logicalAS {
				pointee, err := r.RewriteNode(p.Pointee)
				if err != nil {
					return nil, err
				}
				return dstArena.PtrType(physicalAS, pointee), nil
			}
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
