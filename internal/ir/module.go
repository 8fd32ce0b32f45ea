package ir

import "fmt"

// Module is a named, append-only (until sealed) collection of
// top-level Declarations, owning a reference to the arena that
// allocated them (invariant 7, spec.md §3).
type Module struct {
	Name    string
	Decls   []*Node
	Sealed  bool
	ArenaID ArenaHandle
}

// NewModule creates an empty, open module backed by the given arena.
func NewModule(name string, arena ArenaHandle) *Module {
	return &Module{Name: name, ArenaID: arena}
}

// AddDecl appends a top-level Declaration. Panics if the module is
// already sealed (invariant 7).
func (m *Module) AddDecl(d *Node) {
	if m.Sealed {
		panic(fmt.Sprintf("ir: module %q is sealed, cannot add declaration", m.Name))
	}
	if d.Tag.Category() != CatDeclaration {
		panic(fmt.Sprintf("ir: %s is not a Declaration", d.Tag))
	}
	m.Decls = append(m.Decls, d)
}

// Seal marks the module read-only. Passes call this once they finish
// producing a module (spec.md §4.H step 2).
func (m *Module) Seal() { m.Sealed = true }

// Functions returns every Function declaration in the module, in
// declaration order.
func (m *Module) Functions() []*Node {
	var out []*Node
	for _, d := range m.Decls {
		if d.Tag == TagFunction {
			out = append(out, d)
		}
	}
	return out
}

// FindFunction returns the Function declaration named name, if any.
func (m *Module) FindFunction(name string) *Node {
	for _, d := range m.Decls {
		if d.Tag == TagFunction && d.Payload.(*FunctionPayload).Name == name {
			return d
		}
	}
	return nil
}
