package lower

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/build"
	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/rewrite"
)

type stackState struct {
	dstArena *arena.Arena
	cfg      *config.CompilerConfig
	entrySP  *ir.Node // current function's saved stack pointer, nil when disabled
}

// SetupStackFrames snapshots each function's emulated stack pointer on
// entry and restores it before every Return, so a function that pushed
// local frames during its body never leaks them to its caller. A
// function disables this with a DisablePass("setup_stack_frames")
// annotation, and the whole pass is a no-op when the config's
// per-thread stack budget is zero (no physical-memory emulation is in
// play).
//
// Grounded on original_source/src/shady/passes/setup_stack_frames.c:
// the same begin_body_with_mem/gen_get_stack_size/gen_set_stack_size
// shape, ported to build.BodyBuilder.
func SetupStackFrames(srcArena *arena.Arena, src *ir.Module, cfg *config.CompilerConfig) (*arena.Arena, *ir.Module, error) {
	dstArena := arena.NewLike(srcArena)
	dst := ir.NewModule(src.Name, dstArena)
	st := &stackState{dstArena: dstArena, cfg: cfg}

	process := func(r *rewrite.Rewriter, old *ir.Node) (*ir.Node, error) {
		switch old.Tag {
		case ir.TagFunction:
			return rewriteFunctionWithStackSetup(r, st, old)
		case ir.TagReturn:
			return rewriteReturnWithStackRestore(r, st, old)
		default:
			return r.Default(old)
		}
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

func disabledFor(ann []ir.Annotation, passName string) bool {
	for _, a := range ann {
		if a.Kind == ir.AnnotationDisablePass && a.Arg == passName {
			return true
		}
	}
	return false
}

func rewriteFunctionWithStackSetup(r *rewrite.Rewriter, st *stackState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(*ir.FunctionPayload)
	disabled := disabledFor(p.Annotations, "setup_stack_frames") || st.cfg == nil || st.cfg.PerThreadStackSize == 0

	fn, err := r.RecreateDeclHeaderIdentity(old)
	if err != nil {
		return nil, err
	}

	savedEntry := st.entrySP
	defer func() { st.entrySP = savedEntry }()

	if p.Body == nil {
		st.entrySP = nil
		return fn, nil
	}

	bb := build.BeginBlockWithSideEffects(st.dstArena)
	if !disabled {
		sp, err := bb.GenGetStackSize()
		if err != nil {
			return nil, err
		}
		st.entrySP = sp
	} else {
		st.entrySP = nil
	}

	body, err := r.RewriteNode(p.Body)
	if err != nil {
		return nil, err
	}
	fn.Payload.(*ir.FunctionPayload).SetBody(bb.FinishBody(body))
	return fn, nil
}

func rewriteReturnWithStackRestore(r *rewrite.Rewriter, st *stackState, old *ir.Node) (*ir.Node, error) {
	p := old.Payload.(ir.Return)
	mem, err := r.RewriteNode(p.Mem)
	if err != nil {
		return nil, err
	}
	args, err := r.RewriteNodes(p.Args)
	if err != nil {
		return nil, err
	}
	bb := build.BeginBodyWithMem(st.dstArena, mem)
	if st.entrySP != nil {
		if _, err := bb.GenSetStackSize(st.entrySP); err != nil {
			return nil, err
		}
	}
	ret, err := st.dstArena.Intern(ir.TagReturn, ir.Return{Mem: bb.Mem(), Args: args})
	if err != nil {
		return nil, err
	}
	return bb.FinishBody(ret), nil
}
