package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/diag"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// privateAS is the address space lower_generic_globals assigns a
// module-scope GlobalVariable declared with no explicit storage class
// (the front end's default), matching this target's private/global
// segment the way a missing `storage_class` in the original shader
// source implies file-private linkage.
const privateAS = "private"

// LowerGenericGlobals assigns every GlobalVariable with an empty
// AddressSpace the concrete "private" storage class (lower_
// generic_globals, spec.md §4.H); a GlobalVariable whose front end
// already set an address space (e.g. "input", "output", "uniform")
// is left alone.
func LowerGenericGlobals(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagGlobalVariable {
			return r.Default(old)
		}
		p := old.Payload.(*ir.GlobalVariablePayload)
		as := p.AddressSpace
		if as == "" {
			as = privateAS
		}
		ty, err := r.RewriteNode(p.Ty)
		if err != nil {
			return nil, err
		}
		var init *ir.Node
		if p.Init != nil {
			init, err = r.RewriteNode(p.Init)
			if err != nil {
				return nil, err
			}
		}
		gv := &ir.GlobalVariablePayload{Name: p.Name, Ty: ty, AddressSpace: as, Init: init}
		return dstArena.NewDeclaration(ir.TagGlobalVariable, gv), nil
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

// subgroupAS is the address space lower_subgroup_vars assigns a
// GlobalVariable annotated as subgroup-shared storage, the one this
// target exposes as a distinct memory scope from "private".
const subgroupAS = "subgroup"

// LowerSubgroupVars rewrites a GlobalVariable whose AddressSpace is
// already "subgroup" into the same space unchanged, but additionally
// verifies it carries no initializer — subgroup-shared storage has no
// well-defined per-invocation initial value across a workgroup's
// lanes, so an Init here is an UnsupportedConstruct
// (lower_subgroup_vars, spec.md §4.H).
func LowerSubgroupVars(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagGlobalVariable {
			return r.Default(old)
		}
		p := old.Payload.(*ir.GlobalVariablePayload)
		if p.AddressSpace == subgroupAS && p.Init != nil {
			return nil, diag.Unsupported("lower_subgroup_vars", "subgroup-shared global \""+p.Name+"\" may not have an initializer")
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
