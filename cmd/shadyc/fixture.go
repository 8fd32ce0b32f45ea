package main

import (
	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/ir"
)

// buildIdentityFixture hand-builds `fn identity(x: uniform int) ->
// uniform int { return x; }` directly against arena.Arena, the same
// way internal/emit's tests do, standing in for the surface-syntax
// front end ir.ParseSlimModule declares but does not implement
// (spec.md §1). It gives the compile/dump commands something to run
// the pipeline and emitter over end to end without a real parser.
func buildIdentityFixture() (*arena.Arena, *ir.Module) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	qi32 := a.Qualified(i32, true)

	x := a.Param(qi32, "x", 0)
	fn := a.NewFunction("identity", []*ir.Node{x}, []*ir.Node{qi32}, nil)

	ret := a.MustIntern(ir.TagReturn, ir.Return{Mem: nil, Args: []*ir.Node{x}})
	fn.Payload.(*ir.FunctionPayload).SetBody(ret)

	mod := ir.NewModule("fixture", a)
	mod.AddDecl(fn)
	mod.Seal()
	return a, mod
}
