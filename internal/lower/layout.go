package lower

import (
	"github.com/sunholo/shadeir/internal/ir"
	"github.com/sunholo/shadeir/internal/irtypes"
)

// SizeOf returns ty's size in bytes under the std430-like layout this
// port assumes throughout (spec.md §4.G's layout.go): scalars occupy
// their bit width rounded up to a byte, arrays are tightly packed,
// records place each member at its natural alignment.
func SizeOf(ty *ir.Node) int64 {
	ty = irtypes.GetUnqualifiedType(ty)
	switch p := ty.Payload.(type) {
	case ir.IntType:
		return int64((p.Width + 7) / 8)
	case ir.FloatType:
		return int64((p.Width + 7) / 8)
	case ir.BoolType:
		return 1
	case ir.PtrType:
		return physicalPointerWidth / 8
	case ir.ArrType:
		if p.Size < 0 {
			return -1 // runtime-sized: caller must know the length out of band
		}
		return SizeOf(p.Element) * p.Size
	case ir.PackType:
		return SizeOf(p.Element) * int64(p.Width)
	case ir.RecordType:
		var off int64
		for _, m := range p.Members {
			a := AlignOf(m)
			if off%a != 0 {
				off += a - off%a
			}
			off += SizeOf(m)
		}
		return off
	default:
		return -1
	}
}

// AlignOf returns ty's required alignment in bytes, used to pad
// RecordType members the same way a physical-memory backend would.
func AlignOf(ty *ir.Node) int64 {
	ty = irtypes.GetUnqualifiedType(ty)
	switch p := ty.Payload.(type) {
	case ir.RecordType:
		var best int64 = 1
		for _, m := range p.Members {
			if a := AlignOf(m); a > best {
				best = a
			}
		}
		return best
	case ir.ArrType:
		return AlignOf(p.Element)
	case ir.PackType:
		return AlignOf(p.Element)
	default:
		if s := SizeOf(ty); s > 0 {
			return s
		}
		return 1
	}
}

// MemberOffset returns the byte offset of record member index idx
// under the same layout SizeOf/AlignOf compute, used by layout.go's
// callers (LowerLea) to turn a
// logical field index into the integer Lea offsets a physical-memory
// backend needs.
func MemberOffset(members []*ir.Node, idx int) int64 {
	var off int64
	for i, m := range members {
		a := AlignOf(m)
		if off%a != 0 {
			off += a - off%a
		}
		if i == idx {
			return off
		}
		off += SizeOf(m)
	}
	return off
}
