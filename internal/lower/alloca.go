package lower

import (
	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/irtypes"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// allocaInfo tracks what DemoteAlloca learned about one LocalAlloc or
// StackAlloc instance by walking its use list.
type allocaInfo struct {
	ty            *ir.Node // rewritten element type
	leaks         bool
	readFrom      bool
	nonLogicalUse bool
	replacement   *ir.Node
}

type allocaState struct {
	dstArena *arena.Arena
	cfg      *config.CompilerConfig
	uses     *analysis.UseMap
	info     map[*ir.Node]*allocaInfo // old alloc node -> analysis
	changed  bool
}

// DemoteAlloca eliminates or weakens allocations whose address never
// escapes the function: one that is never read degenerates to Undef,
// one that is read but never leaks becomes a LocalAlloc (register,
// rather than stack-frame, storage) when the caller opts in. Loads and
// stores through a demoted allocation that change the access type are
// rewritten with an explicit ReinterpretCast. Reports whether anything
// changed, so callers can run it to a fixed point (spec.md §4.H
// apply_opt).
//
// Grounded on original_source/src/shady/passes/opt_demote_alloca.c:
// visit_ptr_uses's leaks/read_from/non_logical_use classification and
// get_ptr_source_knowledge's convert/reinterpret-following walk are
// ported directly; this port keeps the same three-way outcome (Undef,
// weakened LocalAlloc, or left as a real allocation).
func DemoteAlloca(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, bool, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	st := &allocaState{dstArena: dstArena, cfg: cfg, info: make(map[*ir.Node]*allocaInfo)}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if new, ok := r.SearchProcessed(old); ok {
			return new, nil
		}
		switch old.Tag {
		case ir.TagFunction:
			p := old.Payload.(*ir.FunctionPayload)
			saved := st.uses
			st.uses = analysis.BuildUses(old)
			fn, err := r.RecreateDeclHeaderIdentity(old)
			if err != nil {
				return nil, err
			}
			if err := r.SetFunctionBody(fn, p.Body); err != nil {
				return nil, err
			}
			st.uses = saved
			return fn, nil
		case ir.TagLocalAlloc:
			p := old.Payload.(ir.LocalAlloc)
			return handleAlloc(r, st, old, p.Mem, p.Elem)
		case ir.TagStackAlloc:
			p := old.Payload.(ir.StackAlloc)
			return handleAlloc(r, st, old, p.Mem, p.Elem)
		case ir.TagLoad:
			return rewriteLoadThroughDemoted(r, st, old)
		case ir.TagStore:
			return rewriteStoreThroughDemoted(r, st, old)
		default:
			return r.Default(old)
		}
	}

	rw := rewrite.New(src, dst, dstArena, process)
	for _, d := range src.Decls {
		nd, err := rw.RewriteNode(d)
		if err != nil {
			return nil, nil, false, err
		}
		dst.AddDecl(nd)
	}
	dst.Seal()
	return dstArena, dst, st.changed, nil
}

func handleAlloc(r *rewrite.Rewriter, st *allocaState, old *ir.Node, mem, elem *ir.Node) (*ir.Node, error) {
	nty, err := r.RewriteNode(elem)
	if err != nil {
		return nil, err
	}
	info := &allocaInfo{ty: nty}
	classifyUses(st.uses, old, info)
	st.info[old] = info

	if !info.leaks {
		if !info.readFrom && !info.nonLogicalUse {
			st.changed = true
			rawTy := irtypes.GetUnqualifiedType(old.Type)
			nrawTy, err := r.RewriteNode(rawTy)
			if err != nil {
				return nil, err
			}
			u := st.dstArena.Undef(nrawTy)
			info.replacement = u
			return u, nil
		}
		if !info.nonLogicalUse && st.cfg != nil && st.cfg.Optimisations.WeakenNonLeakingAllocas {
			st.changed = true
			nmem, err := r.RewriteNode(mem)
			if err != nil {
				return nil, err
			}
			la, err := st.dstArena.Intern(ir.TagLocalAlloc, ir.LocalAlloc{Mem: nmem, Elem: nty})
			if err != nil {
				return nil, err
			}
			info.replacement = la
			return la, nil
		}
	}
	identity, err := r.RecreateNodeIdentity(old)
	if err != nil {
		return nil, err
	}
	info.replacement = identity
	return identity, nil
}

// classifyUses walks alloc's use list exactly once (spec.md §4.E use
// lists are singly linked, cheap to re-walk per allocation).
func classifyUses(uses *analysis.UseMap, alloc *ir.Node, info *allocaInfo) {
	if uses == nil {
		info.leaks = true
		return
	}
	for u := uses.UsesOf(alloc); u != nil; u = u.Next {
		switch u.User.Tag {
		case ir.TagFunction, ir.TagBasicBlock:
			continue // use as an abstraction's own param binding, not a real use
		case ir.TagLoad:
			info.readFrom = true
		case ir.TagStore:
			sp := u.User.Payload.(ir.Store)
			if sp.Value == alloc {
				info.leaks = true // storing the address itself, not through it
			}
		case ir.TagPrimOp:
			p := u.User.Payload.(ir.PrimOp)
			switch p.Op {
			case "reinterpret":
				info.nonLogicalUse = true
			case "convert":
				// A convert to a pointer type is a Generic/non-generic
				// address-space conversion: the pointer value is just
				// tracked through it, not logically consumed. A convert
				// to anything else (e.g. a numeric bitcast) consumes the
				// address as data, so it leaks.
				if u.User.Type != nil && irtypes.GetUnqualifiedType(u.User.Type).Tag == ir.TagPtrType {
					info.nonLogicalUse = true
				} else {
					info.leaks = true
				}
			default:
				info.leaks = true
			}
		case ir.TagLea:
			info.leaks = true
		default:
			info.leaks = true
		}
	}
}

// sourceAlloc follows a pointer value back through convert/reinterpret
// casts to the allocaInfo it ultimately derives from, or nil if it
// does not derive from one directly.
func sourceAlloc(st *allocaState, ptr *ir.Node) *allocaInfo {
	for ptr != nil {
		switch ptr.Tag {
		case ir.TagLocalAlloc, ir.TagStackAlloc:
			return st.info[ptr]
		case ir.TagPrimOp:
			p := ptr.Payload.(ir.PrimOp)
			if (p.Op == "convert" || p.Op == "reinterpret") && len(p.Args) == 1 {
				ptr = p.Args[0]
				continue
			}
		}
		return nil
	}
	return nil
}

func rewriteLoadThroughDemoted(r *rewrite.Rewriter, st *allocaState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Load)
	k := sourceAlloc(st, p.Pointer)
	if k == nil || k.replacement == nil {
		return r.RecreateNodeIdentity(old)
	}
	nptr, err := r.RewriteNode(p.Pointer)
	if err != nil {
		return nil, err
	}
	if nptr == k.replacement {
		return r.RecreateNodeIdentity(old)
	}
	accessTy := irtypes.PointerElementType(nptr.Type)
	if !irtypes.IsReinterpretCastLegal(accessTy, k.ty) {
		return r.RecreateNodeIdentity(old)
	}
	st.changed = true
	nmem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	load, err := st.dstArena.Intern(ir.TagLoad, ir.Load{Mem: nmem, Pointer: k.replacement})
	if err != nil {
		return nil, err
	}
	return st.dstArena.Intern(ir.TagReinterpretCast, ir.ReinterpretCast{DestType: accessTy, Value: load})
}

func rewriteStoreThroughDemoted(r *rewrite.Rewriter, st *allocaState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Store)
	k := sourceAlloc(st, p.Pointer)
	if k == nil || k.replacement == nil {
		return r.RecreateNodeIdentity(old)
	}
	nptr, err := r.RewriteNode(p.Pointer)
	if err != nil {
		return nil, err
	}
	if nptr == k.replacement {
		return r.RecreateNodeIdentity(old)
	}
	accessTy := irtypes.PointerElementType(nptr.Type)
	if !irtypes.IsReinterpretCastLegal(accessTy, k.ty) {
		return r.RecreateNodeIdentity(old)
	}
	st.changed = true
	nmem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	nval, err := r.RewriteNode(p.Value)
	if err != nil {
		return nil, err
	}
	cast, err := st.dstArena.Intern(ir.TagReinterpretCast, ir.ReinterpretCast{DestType: k.ty, Value: nval})
	if err != nil {
		return nil, err
	}
	return st.dstArena.Intern(ir.TagStore, ir.Store{Mem: nmem, Pointer: k.replacement, Value: cast})
}
