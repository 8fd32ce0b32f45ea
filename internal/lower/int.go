package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// narrowIntWidth is half the native width: isNarrowInt treats every
// integer type narrower than narrowIntWidth*2 (32 bits) as needing
// legalization onto a native-width type before arithmetic.
const narrowIntWidth = 16

// nativeIntWidth is the width narrow integers are promoted to.
const nativeIntWidth = 32

// LowerNarrowInts promotes IntType(width<32) values flowing through
// PrimOp arithmetic to 32-bit, via a Conversion in and back out, for
// targets whose ALUs have no native 8/16-bit integer arithmetic.
// Loads, stores and struct layout keep the narrow width (memory
// representation is unaffected); only the arithmetic operands are
// widened, matching how this port's teacher-derived pipeline treats
// every lowering pass as a narrow, single-concern rewrite (spec.md
// §4.G int.go).
func LowerNarrowInts(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagPrimOp {
			return r.Default(old)
		}
		return rewriteNarrowPrimOp(r, dstArena, old)
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

func rewriteNarrowPrimOp(r *rewrite.Rewriter, a *arena.Arena, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.PrimOp)
	args := make([]*ir.Node, len(p.Args))
	widened := false
	for i, arg := range p.Args {
		na, err := r.RewriteNode(arg)
		if err != nil {
			return nil, err
		}
		if it, ok := isNarrowInt(na.Type); ok {
			wide, err := a.Intern(ir.TagConversion, ir.Conversion{DestType: a.IntType(nativeIntWidth, it.Signed), Value: na})
			if err != nil {
				return nil, err
			}
			na = wide
			widened = true
		}
		args[i] = na
	}
	if !widened {
		return a.Intern(ir.TagPrimOp, ir.PrimOp{Op: p.Op, Args: args})
	}
	wideOp, err := a.Intern(ir.TagPrimOp, ir.PrimOp{Op: p.Op, Args: args})
	if err != nil {
		return nil, err
	}
	if old.Type == nil {
		return wideOp, nil
	}
	if it, ok := isNarrowInt(old.Type); ok {
		return a.Intern(ir.TagConversion, ir.Conversion{DestType: a.IntType(it.Width, it.Signed), Value: wideOp})
	}
	return wideOp, nil
}

func isNarrowInt(ty *ir.Node) (ir.IntType, bool) {
	if ty == nil {
		return ir.IntType{}, false
	}
	inner := ty
	if ty.Tag == ir.TagQualifiedType {
		inner = ty.Payload.(ir.QualifiedType).Inner
	}
	if inner.Tag != ir.TagIntType {
		return ir.IntType{}, false
	}
	it := inner.Payload.(ir.IntType)
	if it.Width >= narrowIntWidth*2 {
		return ir.IntType{}, false
	}
	return it, true
}
