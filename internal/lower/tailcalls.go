package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// LowerTailcalls eliminates the TailCall/Join/Control machinery
// LowerCallf introduced, converting every TailCall back into a plain
// Call whose result immediately feeds a Join of the enclosing join
// point. This is the simplification spec.md §4.G documents as valid
// for call trees where no continuation escapes its dynamic extent —
// the common case for shader code, which never captures a Functionthe
// way a general-purpose language closure would. A module where a join
// point genuinely outlives its Control (the general case the original
// compiler's lower_tailcalls.c handles with an explicit call-stack
// simulation) is out of scope; see DESIGN.md.
//
// A Control's body is a BasicBlock(jp){ TailCall callee(args, jp) }.
// Lowering inlines it: Control becomes Call(callee, args), and any
// Join targeting that same jp becomes the value Control itself now
// carries, so subsequent instructions referencing the old Control
// node transparently see the call's result.
func LowerTailcalls(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag == ir.TagControl {
			return lowerControlToCall(r, dstArena, old)
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

func lowerControlToCall(r *rewrite.Rewriter, a *arena.Arena, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Control)
	_, body := ir.Abstraction(p.Body)
	tc, ok := body.Payload.(ir.TailCall)
	if !ok {
		// a Control whose body isn't a bare tail call is recreated
		// unchanged; internal/emit rejects any Control that reaches it.
		return r.RecreateNodeIdentity(old)
	}

	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	callee, err := r.RewriteNode(tc.Callee)
	if err != nil {
		return nil, err
	}
	// drop the trailing jp argument lower_callf appended: this call is
	// being collapsed back to a direct invocation.
	args, err := r.RewriteNodes(tc.Args[:len(tc.Args)-1])
	if err != nil {
		return nil, err
	}
	return a.Intern(ir.TagCall, ir.Call{Mem: mem, Callee: callee, Args: args})
}
