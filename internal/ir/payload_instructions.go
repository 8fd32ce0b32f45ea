package ir

import "fmt"

// Call invokes a Function (direct, via FnAddr, or indirect) with
// arguments, producing a (possibly record-wrapped) result.
type Call struct {
	Mem    *Node
	Callee *Node
	Args   []*Node
}

func (c Call) Key() string { return fmt.Sprintf("Call/%d/%d/%s", c.Mem.ID(), c.Callee.ID(), idList(c.Args)) }

// PrimOp is a pure primitive operation (arithmetic, bitwise, ...); it
// has no mem predecessor since it cannot be observed to reorder.
type PrimOp struct {
	Op   string
	Args []*Node
}

func (p PrimOp) Key() string { return fmt.Sprintf("PrimOp/%s/%s", p.Op, idList(p.Args)) }

// Load reads through a pointer.
type Load struct {
	Mem     *Node
	Pointer *Node
}

func (l Load) Key() string { return fmt.Sprintf("Load/%d/%d", l.Mem.ID(), l.Pointer.ID()) }

// Store writes a value through a pointer.
type Store struct {
	Mem     *Node
	Pointer *Node
	Value   *Node
}

func (s Store) Key() string {
	return fmt.Sprintf("Store/%d/%d/%d", s.Mem.ID(), s.Pointer.ID(), s.Value.ID())
}

// LocalAlloc is a function-local allocation not required to live in a
// stack frame (eligible for demotion/elimination by opt_demote_alloca).
type LocalAlloc struct {
	Mem      *Node
	Elem     *Node
}

func (a LocalAlloc) Key() string { return fmt.Sprintf("LocalAlloc/%d/%d", a.Mem.ID(), a.Elem.ID()) }

// StackAlloc is an allocation that must live in an explicit stack
// frame (its address may escape the defining function).
type StackAlloc struct {
	Mem  *Node
	Elem *Node
}

func (a StackAlloc) Key() string { return fmt.Sprintf("StackAlloc/%d/%d", a.Mem.ID(), a.Elem.ID()) }

// Lea computes a pointer offset ("load effective address") without
// dereferencing.
type Lea struct {
	Base    *Node
	Offsets []*Node
}

func (l Lea) Key() string { return fmt.Sprintf("Lea/%d/%s", l.Base.ID(), idList(l.Offsets)) }

// Memcpy copies Size bytes from Src to Dst.
type Memcpy struct {
	Mem  *Node
	Dst  *Node
	Src  *Node
	Size *Node
}

func (m Memcpy) Key() string {
	return fmt.Sprintf("Memcpy/%d/%d/%d/%d", m.Mem.ID(), m.Dst.ID(), m.Src.ID(), m.Size.ID())
}

// ReinterpretCast bitcasts Value to DestType; legal only when source
// and destination have equal bit-width and are both scalar data types
// (irtypes.IsReinterpretCastLegal).
type ReinterpretCast struct {
	DestType *Node
	Value    *Node
}

func (c ReinterpretCast) Key() string { return fmt.Sprintf("Reinterpret/%d/%d", c.DestType.ID(), c.Value.ID()) }

// Conversion numerically converts Value to DestType (widen/narrow,
// signed/unsigned crossing); never pointer<->non-pointer.
type Conversion struct {
	DestType *Node
	Value    *Node
}

func (c Conversion) Key() string { return fmt.Sprintf("Conversion/%d/%d", c.DestType.ID(), c.Value.ID()) }

// Comment is a no-op annotation carried through lowering for debugging.
type Comment struct{ Text string }

func (c Comment) Key() string { return "Comment/" + c.Text }

// DebugPrintf is a debug-only side-effecting print.
type DebugPrintf struct {
	Mem    *Node
	Format string
	Args   []*Node
}

func (d DebugPrintf) Key() string {
	return fmt.Sprintf("DebugPrintf/%d/%s/%s", d.Mem.ID(), d.Format, idList(d.Args))
}

// PushValueStack pushes Value onto the emulated physical value stack
// (used when lower_stack emulates spilling).
type PushValueStack struct {
	Mem   *Node
	Value *Node
}

func (p PushValueStack) Key() string { return fmt.Sprintf("PushValueStack/%d/%d", p.Mem.ID(), p.Value.ID()) }

// PopValueStack pops a value of Ty off the emulated value stack.
type PopValueStack struct {
	Mem *Node
	Ty  *Node
}

func (p PopValueStack) Key() string { return fmt.Sprintf("PopValueStack/%d/%d", p.Mem.ID(), p.Ty.ID()) }

// GetStackSize reads the current emulated stack pointer.
type GetStackSize struct{ Mem *Node }

func (g GetStackSize) Key() string { return fmt.Sprintf("GetStackSize/%d", g.Mem.ID()) }

// SetStackSize restores the emulated stack pointer to Value.
type SetStackSize struct {
	Mem   *Node
	Value *Node
}

func (s SetStackSize) Key() string { return fmt.Sprintf("SetStackSize/%d/%d", s.Mem.ID(), s.Value.ID()) }

// ExtInstr invokes a vendor extended instruction by Set/Opcode name,
// e.g. "shady.internal"/"ShadyOpDefaultJoinPoint".
type ExtInstr struct {
	Mem     *Node
	Set     string
	Opcode  string
	Args    []*Node
}

func (e ExtInstr) Key() string {
	return fmt.Sprintf("ExtInstr/%d/%s/%s/%s", e.Mem.ID(), e.Set, e.Opcode, idList(e.Args))
}

func idList(ns []*Node) string {
	s := ""
	for _, n := range ns {
		s += fmt.Sprintf("%d,", n.ID())
	}
	return s
}
