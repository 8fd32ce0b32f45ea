package ir

import "fmt"

// Param is a parameter of some Abstraction; identity matters (two
// Params of the same type are not the same value), so its Key folds
// in a caller-assigned Slot to keep distinct params from colliding.
type Param struct {
	QType *Node // qualified type
	Name  string
	Slot  uint64
}

func (p Param) Key() string { return fmt.Sprintf("Param/%d/%s/%d", p.QType.ID(), p.Name, p.Slot) }

// FnAddr is the address-of a Function declaration, used as an atomic
// value e.g. in the callee slot of Call/TailCall.
type FnAddr struct{ Fn *Node }

func (f FnAddr) Key() string { return fmt.Sprintf("FnAddr/%d", f.Fn.ID()) }

// IntLit is an integer literal of the given (unqualified) int type.
type IntLit struct {
	IntTy *Node
	Value int64
}

func (l IntLit) Key() string { return fmt.Sprintf("IntLit/%d/%d", l.IntTy.ID(), l.Value) }

// FloatLit is a float literal of the given (unqualified) float type.
type FloatLit struct {
	FloatTy *Node
	Value   float64
}

func (l FloatLit) Key() string { return fmt.Sprintf("FloatLit/%d/%v", l.FloatTy.ID(), l.Value) }

// BoolLit is a boolean constant.
type BoolLit struct{ Value bool }

func (l BoolLit) Key() string { return fmt.Sprintf("BoolLit/%t", l.Value) }

// Undef is an unspecified value of a given unqualified type, used e.g.
// when opt_demote_alloca proves an allocation fully dead.
type Undef struct{ Ty *Node }

func (u Undef) Key() string { return fmt.Sprintf("Undef/%d", u.Ty.ID()) }

// NullPtr is the null pointer constant of a given pointer type.
type NullPtr struct{ PtrTy *Node }

func (n NullPtr) Key() string { return fmt.Sprintf("NullPtr/%d", n.PtrTy.ID()) }
