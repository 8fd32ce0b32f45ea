// Package irtypes implements the qualified-type subtyping discipline
// of spec.md §4.B: structural subtyping over every tag, with
// qualifier covariance in one direction (uniform <: varying).
//
// Grounded on the teacher's internal/types/row_unification.go, whose
// one-directional row-subsumption check is the closest prior art for
// "a more specific thing is a subtype of a less specific thing, never
// the reverse" — here adapted from row polymorphism to the
// uniform/varying qualifier bit.
package irtypes

import (
	"fmt"

	"github.com/sunholo/shadeir/internal/ir"
)

// TypingError is returned by CheckSubtype when sub is not a subtype
// of super. internal/diag wraps this with node-path/pass context.
type TypingError struct {
	Sub, Super *ir.Node
	Reason     string
}

func (e *TypingError) Error() string {
	return fmt.Sprintf("typing error: %s is not a subtype of %s: %s", e.Sub, e.Super, e.Reason)
}

// GetUnqualifiedType strips a Qualified wrapper, returning ty itself
// if it is not qualified.
func GetUnqualifiedType(ty *ir.Node) *ir.Node {
	if ty.Tag == ir.TagQualifiedType {
		return ty.Payload.(ir.QualifiedType).Inner
	}
	return ty
}

// DeconstructQualifiedType returns (uniform, inner) for a Qualified
// type. Panics if ty is not qualified: call sites that might see a
// raw data type should check Tag first (invariant 3 says a value's
// direct type is always qualified, so this should never fire on
// well-formed IR).
func DeconstructQualifiedType(ty *ir.Node) (uniform bool, inner *ir.Node) {
	q, ok := ty.Payload.(ir.QualifiedType)
	if !ok {
		panic(fmt.Sprintf("irtypes: %s is not a QualifiedType", ty))
	}
	return q.Uniform, q.Inner
}

// PointerElementType returns the pointee of a (possibly qualified)
// pointer type.
func PointerElementType(ty *ir.Node) *ir.Node {
	ty = GetUnqualifiedType(ty)
	p, ok := ty.Payload.(ir.PtrType)
	if !ok {
		panic(fmt.Sprintf("irtypes: %s is not a PtrType", ty))
	}
	return p.Pointee
}

// PackElementType returns the lane type of a (possibly qualified)
// SIMD pack type.
func PackElementType(ty *ir.Node) *ir.Node {
	ty = GetUnqualifiedType(ty)
	p, ok := ty.Payload.(ir.PackType)
	if !ok {
		panic(fmt.Sprintf("irtypes: %s is not a PackType", ty))
	}
	return p.Element
}

// PackWidth returns the lane count of a (possibly qualified) SIMD
// pack type.
func PackWidth(ty *ir.Node) int {
	ty = GetUnqualifiedType(ty)
	return ty.Payload.(ir.PackType).Width
}

// WrapMultipleYields represents a multi-value yield as a single
// RecordType, the "record" type spec.md §4.B calls for.
func WrapMultipleYields(a Interner, yieldTypes []*ir.Node) *ir.Node {
	if len(yieldTypes) == 1 {
		return yieldTypes[0]
	}
	return a.RecordType(yieldTypes)
}

// Interner is the minimal arena surface irtypes needs to build types.
// A narrow interface avoids irtypes depending on the concrete
// internal/arena.Arena type, keeping the type system independently
// testable against a fake.
type Interner interface {
	RecordType(members []*ir.Node) *ir.Node
}

// IsSubtype reports whether sub is a subtype of super. Subtyping is
// structural per tag, with the one qualifier-covariance rule: a
// uniform value is a subtype of a varying value of the same inner
// type, never the reverse.
func IsSubtype(sub, super *ir.Node) bool {
	if sub.Tag == ir.TagQualifiedType && super.Tag == ir.TagQualifiedType {
		subU, subInner := DeconstructQualifiedType(sub)
		superU, superInner := DeconstructQualifiedType(super)
		if !structurallyEqual(subInner, superInner) {
			return false
		}
		// uniform <: varying; varying is never <: uniform.
		return subU == superU || (subU && !superU)
	}
	return structurallyEqual(sub, super)
}

// CheckSubtype is IsSubtype with a TypingError on failure, for call
// sites that need to fail loudly (arena.TypeHook, lowering passes).
func CheckSubtype(sub, super *ir.Node) error {
	if !IsSubtype(sub, super) {
		return &TypingError{Sub: sub, Super: super, Reason: "structural mismatch or invalid qualifier direction"}
	}
	return nil
}

// structurallyEqual compares two type nodes for full structural
// equality (same tag, same id if hash-consed in the same arena: in
// practice, within one arena structural equality is identity equality
// per invariant 1, so this is effectively a pointer comparison plus a
// cross-arena fallback for the rare case a checker compares types
// coming from different arenas mid-rewrite).
func structurallyEqual(a, b *ir.Node) bool {
	if a == b {
		return true
	}
	if a.Tag != b.Tag {
		return false
	}
	return a.Payload.Key() == b.Payload.Key()
}

// IsReinterpretCastLegal holds iff source and destination have equal
// bit-width and both are scalar data types.
func IsReinterpretCastLegal(src, dst *ir.Node) bool {
	src, dst = GetUnqualifiedType(src), GetUnqualifiedType(dst)
	sw, sOK := scalarWidth(src)
	dw, dOK := scalarWidth(dst)
	return sOK && dOK && sw == dw
}

// IsConversionLegal permits numeric widening/narrowing and
// signed/unsigned crossings, but never pointer<->non-pointer.
func IsConversionLegal(src, dst *ir.Node) bool {
	src, dst = GetUnqualifiedType(src), GetUnqualifiedType(dst)
	if (src.Tag == ir.TagPtrType) != (dst.Tag == ir.TagPtrType) {
		return false
	}
	if src.Tag == ir.TagPtrType && dst.Tag == ir.TagPtrType {
		return false // pointer-to-pointer conversion is not a numeric Conversion
	}
	_, sOK := scalarWidth(src)
	_, dOK := scalarWidth(dst)
	return sOK && dOK
}

func scalarWidth(ty *ir.Node) (int, bool) {
	switch p := ty.Payload.(type) {
	case ir.IntType:
		return p.Width, true
	case ir.FloatType:
		return p.Width, true
	case ir.BoolType:
		return 1, true
	default:
		return 0, false
	}
}
