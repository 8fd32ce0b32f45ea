// Package rewrite implements the structural module-to-module map of
// spec.md §4.C: a source module, a destination module, a memoisation
// map from old Node to new Node, and a per-tag dispatch function
// supplied by the pass.
//
// Grounded on the teacher's internal/pipeline/op_lowering.go, whose
// OpLowerer threads a fixed rewrite function recursively over a tree,
// memo-free; here that idiom is generalized into a reusable Rewriter
// with a pluggable RewriteFn and an explicit memo map, and two-phase
// declaration recreation is added per spec.md's cyclic-reference
// design note (functions may reference their own body recursively).
package rewrite

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
)

// RewriteFn is supplied by a pass. It receives the rewriter and an
// old-arena node and must return the corresponding destination-arena
// node. It may call r.RewriteNode (memoised) or
// r.RecreateNodeIdentity (structural copy with children rewritten).
type RewriteFn func(r *Rewriter, old *ir.Node) (*ir.Node, error)

// Rewriter holds everything one pass invocation needs to map an old
// module into a new one.
type Rewriter struct {
	SrcModule *ir.Module
	DstModule *ir.Module
	DstArena  *arena.Arena
	Fn        RewriteFn

	memo map[*ir.Node]*ir.Node
}

// New creates a rewriter producing dstModule (backed by dstArena) from
// srcModule, dispatching unmapped nodes through fn.
func New(srcModule, dstModule *ir.Module, dstArena *arena.Arena, fn RewriteFn) *Rewriter {
	return &Rewriter{
		SrcModule: srcModule,
		DstModule: dstModule,
		DstArena:  dstArena,
		Fn:        fn,
		memo:      make(map[*ir.Node]*ir.Node),
	}
}

// RewriteNode rewrites old through the memo map: if old has already
// been mapped, the pinned result is returned; otherwise Fn runs and
// its result is memoised before being returned. A nil old (the mem
// chain of a function body with no instructions before its terminator)
// rewrites to nil.
func (r *Rewriter) RewriteNode(old *ir.Node) (*ir.Node, error) {
	if old == nil {
		return nil, nil
	}
	if new, ok := r.memo[old]; ok {
		return new, nil
	}
	new, err := r.Fn(r, old)
	if err != nil {
		return nil, err
	}
	r.memo[old] = new
	return new, nil
}

// RewriteNodes rewrites every element of an ir.Nodes / slice in order.
func (r *Rewriter) RewriteNodes(olds []*ir.Node) ([]*ir.Node, error) {
	out := make([]*ir.Node, len(olds))
	for i, o := range olds {
		n, err := r.RewriteNode(o)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Register pins old -> new directly, without invoking Fn. Used e.g.
// to bind a Function's old parameters to its freshly recreated ones
// before rewriting the body that references them.
func (r *Rewriter) Register(old, new *ir.Node) { r.memo[old] = new }

// RegisterList pins every (olds[i], news[i]) pair.
func (r *Rewriter) RegisterList(olds, news []*ir.Node) {
	for i, o := range olds {
		r.memo[o] = news[i]
	}
}

// SearchProcessed returns the mapping for old without triggering Fn,
// for call sites (e.g. Function rewriting) that need to check "have I
// already started processing this" before recursing.
func (r *Rewriter) SearchProcessed(old *ir.Node) (*ir.Node, bool) {
	n, ok := r.memo[old]
	return n, ok
}

// CloneDict returns a new Rewriter sharing SrcModule/DstModule/DstArena/Fn
// but with an independent copy of the current memo map, for passes
// (e.g. LCSSA) that need a locally-renamed scope they can discard on
// exit without disturbing the enclosing rewrite.
func (r *Rewriter) CloneDict() *Rewriter {
	clone := &Rewriter{
		SrcModule: r.SrcModule,
		DstModule: r.DstModule,
		DstArena:  r.DstArena,
		Fn:        r.Fn,
		memo:      make(map[*ir.Node]*ir.Node, len(r.memo)),
	}
	for k, v := range r.memo {
		clone.memo[k] = v
	}
	return clone
}

// RecreateDeclHeaderIdentity builds an empty Function/BasicBlock
// header with its parameters rewritten, pre-registers old -> new in
// the memo map (breaking recursive references from the old body to
// the old declaration itself), and returns the new header with body
// still unset. The caller must rewrite the body and call SetBody.
func (r *Rewriter) RecreateDeclHeaderIdentity(old *ir.Node) (*ir.Node, error) {
	switch old.Tag {
	case ir.TagFunction:
		p := old.Payload.(*ir.FunctionPayload)
		nparams, err := recreateParams(r, p.Params)
		if err != nil {
			return nil, err
		}
		nreturns, err := r.RewriteNodes(p.ReturnTypes)
		if err != nil {
			return nil, err
		}
		fn := r.DstArena.NewFunction(p.Name, nparams, nreturns, p.Annotations)
		r.Register(old, fn)
		r.RegisterList(p.Params, nparams)
		return fn, nil
	case ir.TagBasicBlock:
		p := old.Payload.(*ir.BasicBlockPayload)
		nparams, err := recreateParams(r, p.Params)
		if err != nil {
			return nil, err
		}
		bb := r.DstArena.NewBasicBlock(nparams)
		r.Register(old, bb)
		r.RegisterList(p.Params, nparams)
		return bb, nil
	default:
		panic("rewrite: RecreateDeclHeaderIdentity called on non-abstraction tag " + old.Tag.String())
	}
}

// recreateParams rebuilds parameter value nodes in the destination
// arena with freshly rewritten qualified types, keeping each param's
// name and slot.
func recreateParams(r *Rewriter, olds []*ir.Node) ([]*ir.Node, error) {
	out := make([]*ir.Node, len(olds))
	for i, o := range olds {
		op := o.Payload.(ir.Param)
		nty, err := r.RewriteNode(op.QType)
		if err != nil {
			return nil, err
		}
		out[i] = r.DstArena.Param(nty, op.Name, op.Slot)
	}
	return out, nil
}

// SetFunctionBody rewrites a Function's body under r (scoped via
// CloneDict by the caller if locally-renamed params are in play) and
// attaches it to the Function header produced by
// RecreateDeclHeaderIdentity.
func (r *Rewriter) SetFunctionBody(newFn *ir.Node, oldBody *ir.Node) error {
	if oldBody == nil {
		return nil
	}
	nb, err := r.RewriteNode(oldBody)
	if err != nil {
		return err
	}
	newFn.Payload.(*ir.FunctionPayload).SetBody(nb)
	return nil
}

// RewriteAbstraction rewrites a nested BasicBlock abstraction (an If's
// true/false branch, a Loop's body, any structured region's tail) in
// one call: header recreation, body rewrite, SetBody, memoised like
// any other node. Top-level Function declarations use
// RecreateDeclHeaderIdentity/SetFunctionBody directly instead, since
// the pipeline needs to interleave other bookkeeping between the two
// phases (module.AddDecl, annotation handling).
func (r *Rewriter) RewriteAbstraction(old *ir.Node) (*ir.Node, error) {
	if new, ok := r.memo[old]; ok {
		return new, nil
	}
	_, oldBody := ir.Abstraction(old)
	bb, err := r.RecreateDeclHeaderIdentity(old)
	if err != nil {
		return nil, err
	}
	if err := r.SetBasicBlockBody(bb, oldBody); err != nil {
		return nil, err
	}
	return bb, nil
}

// Default is the fallback every lowering/restructuring pass's RewriteFn
// calls for a tag it does not itself transform: BasicBlock targets
// must go through the two-phase RewriteAbstraction (RecreateNodeIdentity
// panics on them, since functions/blocks may reference themselves
// recursively through their own body); every other tag is a plain
// structural copy.
func (r *Rewriter) Default(old *ir.Node) (*ir.Node, error) {
	if old.Tag == ir.TagBasicBlock {
		return r.RewriteAbstraction(old)
	}
	return r.RecreateNodeIdentity(old)
}

// SetBasicBlockBody is SetFunctionBody for BasicBlock headers.
func (r *Rewriter) SetBasicBlockBody(newBB *ir.Node, oldBody *ir.Node) error {
	if oldBody == nil {
		return nil
	}
	nb, err := r.RewriteNode(oldBody)
	if err != nil {
		return err
	}
	newBB.Payload.(*ir.BasicBlockPayload).SetBody(nb)
	return nil
}
