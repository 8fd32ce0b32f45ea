package ir

import "fmt"

// Return exits the enclosing Function with Args.
type Return struct {
	Mem  *Node
	Args []*Node
}

func (r Return) Key() string { return fmt.Sprintf("Return/%d/%s", r.Mem.ID(), idList(r.Args)) }

// Jump unconditionally transfers control to Target (a BasicBlock,
// never the function entry per invariant 5) with Args bound to its
// parameters.
type Jump struct {
	Mem    *Node
	Target *Node
	Args   []*Node
}

func (j Jump) Key() string {
	return fmt.Sprintf("Jump/%d/%d/%s", j.Mem.ID(), j.Target.ID(), idList(j.Args))
}

// Branch transfers to TrueJump or FalseJump based on Cond.
type Branch struct {
	Mem       *Node
	Cond      *Node
	TrueJump  *Node // must itself be a Jump terminator
	FalseJump *Node
}

func (b Branch) Key() string {
	return fmt.Sprintf("Branch/%d/%d/%d/%d", b.Mem.ID(), b.Cond.ID(), b.TrueJump.ID(), b.FalseJump.ID())
}

// SwitchCase pairs a literal with the Jump taken when Value matches it.
type SwitchCase struct {
	Literal *Node
	Jump    *Node
}

// Switch dispatches on Value to one of Cases, or Default.
type Switch struct {
	Mem     *Node
	Value   *Node
	Cases   []SwitchCase
	Default *Node
}

func (s Switch) Key() string {
	k := fmt.Sprintf("Switch/%d/%d/", s.Mem.ID(), s.Value.ID())
	for _, c := range s.Cases {
		k += fmt.Sprintf("%d:%d,", c.Literal.ID(), c.Jump.ID())
	}
	k += fmt.Sprintf("/%d", s.Default.ID())
	return k
}

// If is a structured selection region. Tail's parameters must exactly
// match YieldTypes (invariant 4).
type If struct {
	Mem        *Node
	Cond       *Node
	TrueBody   *Node // an Abstraction with no params
	FalseBody  *Node // an Abstraction with no params, or nil for value-less If
	Tail       *Node
	YieldTypes []*Node
}

func (i If) Key() string {
	falseID := int64(-1)
	if i.FalseBody != nil {
		falseID = int64(i.FalseBody.ID())
	}
	return fmt.Sprintf("If/%d/%d/%d/%d/%d/%s", i.Mem.ID(), i.Cond.ID(), i.TrueBody.ID(), falseID, i.Tail.ID(), idList(i.YieldTypes))
}

// MatchArm pairs an (optional) set of literals with the body taken
// when Inspect equals one of them, or with Default true for the
// fallback arm.
type MatchArm struct {
	Literals []*Node
	Body     *Node
	Default  bool
}

// Match is a structured multi-way selection region.
type Match struct {
	Mem        *Node
	Inspect    *Node
	Arms       []MatchArm
	Tail       *Node
	YieldTypes []*Node
}

func (m Match) Key() string {
	k := fmt.Sprintf("Match/%d/%d/", m.Mem.ID(), m.Inspect.ID())
	for _, a := range m.Arms {
		k += fmt.Sprintf("{%s:%d:%t},", idList(a.Literals), a.Body.ID(), a.Default)
	}
	k += fmt.Sprintf("/%d/%s", m.Tail.ID(), idList(m.YieldTypes))
	return k
}

// Loop is a structured loop region: Body is re-entered via
// MergeContinue, exited via MergeBreak into Tail.
type Loop struct {
	Mem         *Node
	Body        *Node // Abstraction whose params are the loop-carried values
	InitialArgs []*Node
	Tail        *Node
	YieldTypes  []*Node
}

func (l Loop) Key() string {
	return fmt.Sprintf("Loop/%d/%d/%s/%d/%s", l.Mem.ID(), l.Body.ID(), idList(l.InitialArgs), l.Tail.ID(), idList(l.YieldTypes))
}

// MergeSelection exits an If region, yielding Args into the If's Tail.
type MergeSelection struct {
	Mem  *Node
	Args []*Node
}

func (m MergeSelection) Key() string { return fmt.Sprintf("MergeSelection/%d/%s", m.Mem.ID(), idList(m.Args)) }

// MergeContinue re-enters the enclosing Loop's Body with Args.
type MergeContinue struct {
	Mem  *Node
	Args []*Node
}

func (m MergeContinue) Key() string { return fmt.Sprintf("MergeContinue/%d/%s", m.Mem.ID(), idList(m.Args)) }

// MergeBreak exits the enclosing Loop, yielding Args into its Tail.
type MergeBreak struct {
	Mem  *Node
	Args []*Node
}

func (m MergeBreak) Key() string { return fmt.Sprintf("MergeBreak/%d/%s", m.Mem.ID(), idList(m.Args)) }

// TailCall transfers control to Callee without expectation of return;
// must be lowered away before the emitter runs (spec.md §4.I).
type TailCall struct {
	Mem    *Node
	Callee *Node
	Args   []*Node
}

func (t TailCall) Key() string {
	return fmt.Sprintf("TailCall/%d/%d/%s", t.Mem.ID(), t.Callee.ID(), idList(t.Args))
}

// Join invokes a join-point token JP with Args, transferring control
// to its Control site.
type Join struct {
	Mem  *Node
	JP   *Node
	Args []*Node
}

func (j Join) Key() string { return fmt.Sprintf("Join/%d/%d/%s", j.Mem.ID(), j.JP.ID(), idList(j.Args)) }

// Control establishes a fresh join point bound to Body's single
// parameter; invoking that join point transfers here with the
// supplied values. Must be lowered away before the emitter runs.
type Control struct {
	Mem        *Node
	Body       *Node // Abstraction with one Param of JoinPointType
	YieldTypes []*Node
}

func (c Control) Key() string {
	return fmt.Sprintf("Control/%d/%d/%s", c.Mem.ID(), c.Body.ID(), idList(c.YieldTypes))
}

// Unreachable marks a program point that control can never reach.
type Unreachable struct{}

func (u Unreachable) Key() string { return "Unreachable" }
