package ir

import "fmt"

// ParserConfig groups the front-end knobs a real surface-syntax parser
// would need (source dialect flags, include paths, and so on). Kept
// empty here: the surface-syntax parser itself is out of scope (see
// ParseSlimModule).
type ParserConfig struct {
	// Dialect names the input language variant a real front end would
	// switch on. Unused by this port's stub.
	Dialect string
}

// ParseSlimModule is the declared boundary between a surface-syntax
// front end and the core pass pipeline: cfg carries compiler-wide
// knobs, pconfig the parser-specific ones, src the raw source bytes,
// and name the module's debug name. A real implementation would lex,
// parse, and elaborate src down to a single open (unsealed) Module of
// slim (unqualified, pre-restructuring) IR ready for
// internal/pipeline.Run.
//
// The surface-syntax parser is not part of this port (spec.md §1):
// nothing in this repository calls this function, and this stub always
// returns a plain error saying no front end is wired in. Tests and
// cmd/shadyc build modules directly with arena.Arena's constructors
// instead of going through this boundary.
func ParseSlimModule(cfg any, pconfig ParserConfig, src []byte, name string) (*Module, error) {
	return nil, fmt.Errorf("ir: ParseSlimModule: no surface-syntax front end is wired into this build (module %q, %d source bytes); construct the Module directly via arena.Arena instead", name, len(src))
}
