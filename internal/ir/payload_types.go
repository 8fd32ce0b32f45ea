package ir

import "fmt"

// IntType is a signed/unsigned integer type of a given bit width.
type IntType struct {
	Width    int
	Signed   bool
}

func (t IntType) Key() string { return fmt.Sprintf("Int/%d/%t", t.Width, t.Signed) }

// FloatType is an IEEE float type of a given bit width.
type FloatType struct{ Width int }

func (t FloatType) Key() string { return fmt.Sprintf("Float/%d", t.Width) }

// BoolType is the single boolean type.
type BoolType struct{}

func (t BoolType) Key() string { return "Bool" }

// PtrType is a pointer to a pointee type, tagged with an address space.
type PtrType struct {
	AddressSpace string
	Pointee      *Node
}

func (t PtrType) Key() string { return fmt.Sprintf("Ptr/%s/%d", t.AddressSpace, t.Pointee.ID()) }

// ArrType is a fixed- or runtime-sized array.
type ArrType struct {
	Element *Node
	Size    int64 // -1 for runtime-sized
}

func (t ArrType) Key() string { return fmt.Sprintf("Arr/%d/%d", t.Element.ID(), t.Size) }

// PackType is a SIMD lane-packed type: Width lanes of Element.
type PackType struct {
	Element *Node
	Width   int
}

func (t PackType) Key() string { return fmt.Sprintf("Pack/%d/%d", t.Element.ID(), t.Width) }

// RecordType represents a struct-like aggregate, and also the
// multiple-yield wrapping type used when a terminator yields >1 value.
type RecordType struct {
	Members []*Node
}

func (t RecordType) Key() string {
	s := "Record/"
	for _, m := range t.Members {
		s += fmt.Sprintf("%d,", m.ID())
	}
	return s
}

// FnType is a function's parameter and return type list.
type FnType struct {
	ParamTypes  []*Node
	ReturnTypes []*Node
}

func (t FnType) Key() string {
	s := "Fn/"
	for _, p := range t.ParamTypes {
		s += fmt.Sprintf("%d,", p.ID())
	}
	s += "/"
	for _, r := range t.ReturnTypes {
		s += fmt.Sprintf("%d,", r.ID())
	}
	return s
}

// JoinPointType is the type of a first-class continuation token that
// yields YieldTypes when invoked.
type JoinPointType struct {
	YieldTypes []*Node
}

func (t JoinPointType) Key() string {
	s := "JoinPoint/"
	for _, y := range t.YieldTypes {
		s += fmt.Sprintf("%d,", y.ID())
	}
	return s
}

// QualifiedType wraps a raw data type with a uniform/varying bit. Per
// invariant 3, a value's direct type is always a QualifiedType, never
// a raw data type.
type QualifiedType struct {
	Inner   *Node
	Uniform bool
}

func (t QualifiedType) Key() string { return fmt.Sprintf("Qualified/%d/%t", t.Inner.ID(), t.Uniform) }
