package ir

import "fmt"

// ArenaHandle is the minimal surface internal/ir needs from an arena,
// kept as an interface so ir has no import-cycle back onto
// internal/arena (which imports ir for Tag/Payload).
type ArenaHandle interface {
	ID() uint64
}

// Payload is tag-specific node data. Implementations must be pure
// value types (no pointers to mutable state) so that Key is a stable
// structural fingerprint: recursive payloads encode children by their
// already-interned Node.ID, never by re-hashing the children's own
// payloads.
type Payload interface {
	// Key returns a canonical string encoding of the payload, used by
	// the arena both as the hash-cons bucket key and, since it is
	// canonical, as the equality test itself.
	Key() string
}

// Node is an immutable tagged value. Two structurally equal nodes in
// the same arena are always the same *Node (invariant 1, spec.md §3).
type Node struct {
	Tag     Tag
	Payload Payload
	Type    *Node // cached type, nil for Type-category nodes themselves
	NodeID  uint64
	Arena   ArenaHandle
}

// ID returns the node's arena-unique, monotonically increasing id.
func (n *Node) ID() uint64 { return n.NodeID }

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d(%s)", n.Tag, n.NodeID, n.Payload.Key())
}

// IsAbstraction reports whether n has parameters and a body, i.e. is a
// Function, BasicBlock, or anonymous lambda per the Abstraction model.
func (n *Node) IsAbstraction() bool {
	switch n.Tag {
	case TagFunction, TagBasicBlock:
		return true
	default:
		return false
	}
}

// Nodes is an immutable ordered sequence of Node references, itself
// hash-consed by the arena that produced it.
type Nodes struct {
	Elems []*Node
	id    uint64
}

// NewNodes builds a sequence carrying the id its arena assigned to it.
func NewNodes(elems []*Node, id uint64) Nodes { return Nodes{Elems: elems, id: id} }

// ID returns the interned id of this sequence within its arena.
func (ns Nodes) ID() uint64 { return ns.id }

func (ns Nodes) Len() int { return len(ns.Elems) }

func (ns Nodes) At(i int) *Node { return ns.Elems[i] }
