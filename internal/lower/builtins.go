package lower

import (
	"strings"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

// builtinAliases canonicalizes the handful of front-end spellings this
// port accepts for the same builtin PrimOp onto one name, so every
// later pass and the emitter only ever need to match one spelling.
var builtinAliases = map[string]string{
	"gl_FragCoord":  "frag_coord",
	"gl_VertexID":   "vertex_index",
	"gl_InstanceID": "instance_index",
}

// NormalizeBuiltins canonicalizes builtin-reference PrimOp names
// (normalize_builtins, spec.md §4.H): a PrimOp whose Op starts with
// "builtin." and names a known alias is rewritten to the canonical
// spelling; anything else passes through unchanged, including an
// unrecognized "builtin."-prefixed op (left for the emitter to reject,
// not this pass's job to validate against a target's supported set).
func NormalizeBuiltins(srcArena *arena.Arena, src *ir.Module) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		if old.Tag != ir.TagPrimOp {
			return r.Default(old)
		}
		p := old.Payload.(ir.PrimOp)
		name, ok := strings.CutPrefix(p.Op, "builtin.")
		if !ok {
			return r.Default(old)
		}
		canon, ok := builtinAliases[name]
		if !ok {
			return r.Default(old)
		}
		args, err := r.RewriteNodes(p.Args)
		if err != nil {
			return nil, err
		}
		return dstArena.Intern(ir.TagPrimOp, ir.PrimOp{Op: "builtin." + canon, Args: args})
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
