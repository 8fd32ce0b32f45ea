package ir

import "fmt"

// FunctionPayload is the header-plus-body of a Function declaration.
// Declarations are never hash-consed (they may be mutually recursive
// through their own bodies); the arena allocates one fresh node per
// call and the body is attached later by SetBody, per the two-phase
// construction strategy in spec.md Design Notes.
type FunctionPayload struct {
	Name        string
	Params      []*Node // Param values
	ReturnTypes []*Node
	Annotations []Annotation
	Body        *Node // Terminator, nil until SetBody
}

func (f *FunctionPayload) Key() string {
	return fmt.Sprintf("Function/%s/%s", f.Name, idList(f.Params))
}

// SetBody attaches a function's body exactly once. Calling it twice
// is a programmer error (the rewriter's recreate_decl_header_identity
// contract relies on set-once semantics to break recursive cycles).
func (f *FunctionPayload) SetBody(body *Node) {
	if f.Body != nil {
		panic("ir: function body already set")
	}
	f.Body = body
}

// BasicBlockPayload is an Abstraction that is a legal Jump target.
type BasicBlockPayload struct {
	Params []*Node
	Body   *Node
}

func (b *BasicBlockPayload) Key() string {
	return fmt.Sprintf("BasicBlock/%s", idList(b.Params))
}

func (b *BasicBlockPayload) SetBody(body *Node) {
	if b.Body != nil {
		panic("ir: basic block body already set")
	}
	b.Body = body
}

// GlobalVariablePayload declares module-scope storage.
type GlobalVariablePayload struct {
	Name         string
	Ty           *Node
	AddressSpace string
	Init         *Node // optional
}

func (g *GlobalVariablePayload) Key() string {
	return fmt.Sprintf("GlobalVariable/%s/%d/%s", g.Name, g.Ty.ID(), g.AddressSpace)
}

// ConstantPayload declares a named module-scope constant value.
type ConstantPayload struct {
	Name  string
	Ty    *Node
	Value *Node
}

func (c *ConstantPayload) Key() string {
	return fmt.Sprintf("Constant/%s/%d/%d", c.Name, c.Ty.ID(), c.Value.ID())
}

// NominalTypePayload names a type for readability in emitted output.
type NominalTypePayload struct {
	Name string
	Body *Node
}

func (n *NominalTypePayload) Key() string {
	return fmt.Sprintf("NominalType/%s/%d", n.Name, n.Body.ID())
}

// Abstraction returns (params, body) for any Function or BasicBlock
// node, unifying the two jump-target-eligible Abstraction shapes.
func Abstraction(n *Node) (params []*Node, body *Node) {
	switch n.Tag {
	case TagFunction:
		p := n.Payload.(*FunctionPayload)
		return p.Params, p.Body
	case TagBasicBlock:
		p := n.Payload.(*BasicBlockPayload)
		return p.Params, p.Body
	default:
		panic(fmt.Sprintf("ir: %s is not an abstraction", n.Tag))
	}
}
