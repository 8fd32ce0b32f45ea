package analysis

import "github.com/sunholo/shadeir/internal/ir"

// Scheduler assigns pure instructions a materialization point: the
// deepest block dominating every one of their uses, per spec.md §4.E.
// Side-effecting instructions are already fixed in place by their mem
// chain and are never rescheduled.
type Scheduler struct {
	cfg   *CFG
	uses  *UseMap
	block map[*ir.Node]*CFNode // memoised schedule decisions
}

// NewScheduler builds a scheduler for fn's CFG and use map.
func NewScheduler(cfg *CFG, uses *UseMap) *Scheduler {
	return &Scheduler{cfg: cfg, uses: uses, block: make(map[*ir.Node]*CFNode)}
}

// ScheduleInstruction returns the block a pure instruction should be
// materialized in: the deepest block dominating every block that uses
// it. Instructions with no recorded uses float to the entry block,
// matching dead-code-tolerant scheduling (a later DCE pass removes them).
func (s *Scheduler) ScheduleInstruction(instr *ir.Node) *CFNode {
	if b, ok := s.block[instr]; ok {
		return b
	}
	uses := s.uses.UsesOf(instr)
	if uses == nil {
		s.block[instr] = s.cfg.Entry
		return s.cfg.Entry
	}
	var useBlocks []*CFNode
	for u := uses; u != nil; u = u.Next {
		if b, ok := s.cfg.byID[u.Block.ID()]; ok {
			useBlocks = append(useBlocks, b)
		}
	}
	target := s.cfg.DeepestCommonDominator(useBlocks)
	s.block[instr] = target
	return target
}
