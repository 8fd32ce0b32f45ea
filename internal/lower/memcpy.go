package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// memcpyMaxUnroll bounds how large a compile-time-sized Memcpy this
// pass will unroll; a larger copy is left as a Memcpy instruction for
// the emitter to translate into a native copy primitive or a runtime
// loop (spec.md §4.G's memcpy.go, Open Question: no general runtime
// loop is synthesized here since that needs a byte-indexed Loop this
// port's structured emitter has no established idiom for yet).
const memcpyMaxUnroll = 64

// LowerMemcpy expands a Memcpy of statically known, small size into a
// straight-line sequence of byte loads and stores through Lea-derived
// pointers, since not every SPIR-V target exposes a bulk memory copy
// instruction. Larger or dynamically-sized copies pass through
// unchanged. The final Store's own node identity becomes the new mem
// token, exactly as Memcpy's would have been, so whatever instruction
// followed it in the original chain still threads correctly.
func LowerMemcpy(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagMemcpy {
			return r.Default(old)
		}
		return rewriteMemcpy(r, dstArena, old)
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

func rewriteMemcpy(r *rewrite.Rewriter, a *arena.Arena, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Memcpy)
	lit, ok := p.Size.Payload.(ir.IntLit)
	if !ok || lit.Value < 0 || lit.Value > memcpyMaxUnroll {
		return r.RecreateNodeIdentity(old)
	}

	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	dstPtr, err := r.RewriteNode(p.Dst)
	if err != nil {
		return nil, err
	}
	srcPtr, err := r.RewriteNode(p.Src)
	if err != nil {
		return nil, err
	}
	if lit.Value == 0 {
		return mem, nil
	}

	idxTy := a.IntType(32, false)
	for i := int64(0); i < lit.Value; i++ {
		idx := a.IntLit(idxTy, i)
		sOff, err := a.Intern(ir.TagLea, ir.Lea{Base: srcPtr, Offsets: []*ir.Node{idx}})
		if err != nil {
			return nil, err
		}
		dOff, err := a.Intern(ir.TagLea, ir.Lea{Base: dstPtr, Offsets: []*ir.Node{idx}})
		if err != nil {
			return nil, err
		}
		v, err := a.Intern(ir.TagLoad, ir.Load{Mem: mem, Pointer: sOff})
		if err != nil {
			return nil, err
		}
		store, err := a.Intern(ir.TagStore, ir.Store{Mem: v, Pointer: dOff, Value: v})
		if err != nil {
			return nil, err
		}
		mem = store
	}
	return mem, nil
}
