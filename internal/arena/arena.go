// Package arena implements the hash-consed, bulk-freeable node
// interner of spec.md §4.A. An Arena owns every Node it creates;
// nodes may only reference other nodes from the same arena, and the
// Rewriter (internal/rewrite) is the sole bridge between arenas.
package arena

import (
	"fmt"
	"sync/atomic"

	"github.com/sunholo/shadeir/internal/ir"
)

var arenaIDSeq uint64

// Flags configure optional arena behaviour.
type Flags struct {
	CheckTypes bool // compute and validate node.Type at intern time
	AllowFold  bool // collapse trivially-foldable nodes at intern time
}

// Arena is a single-writer, hash-consed node store.
type Arena struct {
	flags    Flags
	arenaID  uint64
	nextID   uint64
	byKey    map[string]*ir.Node
	seqByKey map[string]ir.Nodes
	typer    TypeHook
	folder   FoldHook
	alive    bool
}

// TypeHook computes and validates the cached type of a freshly-built
// node; it returns a TypingError (internal/diag) on failure. Wiring
// this as a function value (rather than importing internal/irtypes
// directly) keeps internal/arena free of a dependency on the type
// system, matching the teacher's habit of keeping leaf packages
// independently testable.
type TypeHook func(a *Arena, tag ir.Tag, payload ir.Payload) (*ir.Node, error)

// FoldHook optionally rewrites a (tag, payload) pair to an equivalent,
// simpler one before interning (e.g. constant-folding int arithmetic,
// dropping redundant casts). Returning ok=false leaves the node as is.
type FoldHook func(a *Arena, tag ir.Tag, payload ir.Payload) (newTag ir.Tag, newPayload ir.Payload, ok bool)

// New creates an empty arena. Install SetTypeHook/SetFoldHook before
// interning any node if CheckTypes/AllowFold are set.
func New(flags Flags) *Arena {
	return &Arena{
		flags:    flags,
		arenaID:  atomic.AddUint64(&arenaIDSeq, 1),
		byKey:    make(map[string]*ir.Node),
		seqByKey: make(map[string]ir.Nodes),
		alive:    true,
	}
}

// Flags reports the arena's configured flags, so a pass producing a
// new arena (spec.md §4.H) can carry the same check_types/allow_fold
// configuration forward without the caller threading it separately.
func (a *Arena) Flags() Flags { return a.flags }

// NewLike creates a fresh, empty arena with the same flags as a, with
// typer/folder hooks copied across (they are stateless closures over
// the arena they're called with, so reuse is safe).
func NewLike(a *Arena) *Arena {
	na := New(a.flags)
	na.typer = a.typer
	na.folder = a.folder
	return na
}

// SetTypeHook installs the type-checking hook used when Flags.CheckTypes.
func (a *Arena) SetTypeHook(h TypeHook) { a.typer = h }

// SetFoldHook installs the constant-folding hook used when Flags.AllowFold.
func (a *Arena) SetFoldHook(h FoldHook) { a.folder = h }

// ID is a process-unique handle so ir.Node.Arena can identify "same
// arena" without internal/ir importing internal/arena.
func (a *Arena) ID() uint64 { return a.arenaID }

// Destroy frees every node the arena owns. The pipeline (internal/
// pipeline) is responsible for calling this only once no live
// references into the arena remain (spec.md §4.H step 4, §5).
func (a *Arena) Destroy() {
	a.alive = false
	a.byKey = nil
	a.seqByKey = nil
}

func (a *Arena) mustBeAlive() {
	if !a.alive {
		panic("arena: use after Destroy")
	}
}

// Intern hash-conses a single node: tag, byte-image (the payload's
// canonical Key, which folds in child node ids rather than
// re-hashing their structure), returning the existing node on a hit.
func (a *Arena) Intern(tag ir.Tag, payload ir.Payload) (*ir.Node, error) {
	a.mustBeAlive()

	if a.flags.AllowFold && a.folder != nil {
		if nt, np, ok := a.folder(a, tag, payload); ok {
			tag, payload = nt, np
		}
	}

	key := fmt.Sprintf("%d|%s", tag, payload.Key())
	if existing, ok := a.byKey[key]; ok {
		return existing, nil
	}

	node := &ir.Node{
		Tag:     tag,
		Payload: payload,
		NodeID:  a.nextID,
		Arena:   a,
	}
	a.nextID++

	if a.flags.CheckTypes && a.typer != nil {
		typed, err := a.typer(a, tag, payload)
		if err != nil {
			return nil, err
		}
		node.Type = typed
	}

	a.byKey[key] = node
	return node, nil
}

// MustIntern is Intern without a type-checking failure path, for call
// sites (tests, passes with CheckTypes off) that know it cannot fail.
func (a *Arena) MustIntern(tag ir.Tag, payload ir.Payload) *ir.Node {
	n, err := a.Intern(tag, payload)
	if err != nil {
		panic(err)
	}
	return n
}

// InternSequence hash-conses an ordered node list into an ir.Nodes.
func (a *Arena) InternSequence(elems []*ir.Node) ir.Nodes {
	a.mustBeAlive()
	key := ""
	for _, e := range elems {
		key += fmt.Sprintf("%d,", e.ID())
	}
	if existing, ok := a.seqByKey[key]; ok {
		return existing
	}
	ns := ir.NewNodes(elems, a.nextID)
	a.nextID++
	a.seqByKey[key] = ns
	return ns
}

// NewDeclaration allocates a fresh, never-deduplicated Declaration
// node (Function, BasicBlock, GlobalVariable, Constant, NominalType).
// Declarations are excluded from hash-consing because their bodies
// may reference them recursively (Design Notes, spec.md §9): the
// header is created and registered before the body exists.
func (a *Arena) NewDeclaration(tag ir.Tag, payload ir.Payload) *ir.Node {
	a.mustBeAlive()
	if tag.Category() != ir.CatDeclaration {
		panic(fmt.Sprintf("arena: %s is not a Declaration tag", tag))
	}
	node := &ir.Node{Tag: tag, Payload: payload, NodeID: a.nextID, Arena: a}
	a.nextID++
	return node
}

// NodeCount reports how many distinct interned nodes (of any kind)
// the arena currently holds, for diagnostics and tests.
func (a *Arena) NodeCount() int { return len(a.byKey) }
