package evtfix

import (
	"fmt"
)

// RenameStep moves one key within a group
type RenameStep struct {
	Old string
	New string
}

// Plan is an ordered list of renames inside one group. The order is part of
// the contract: renames are destructive and applied strictly in sequence.
type Plan struct {
	Group string
	Steps []RenameStep
}

// Len returns the number of rename steps
func (p Plan) Len() int {
	return len(p.Steps)
}

// GetOffsetPlan renumbers evt{min..max} (both inclusive) to evt{0..max-min}
// in ascending order. Ascending is safe because every target index is lower
// than or equal to its source, so a target is never a source still waiting
// to be renamed. Returns an empty plan when min is already 0.
func GetOffsetPlan(r EventRange) Plan {
	plan := Plan{Group: GetGroup}
	if r.Min == 0 || r.Max < r.Min {
		return plan
	}
	plan.Steps = make([]RenameStep, 0, 2*(r.Span()+1))
	for idx, event := int64(0), r.Min; event <= r.Max; idx, event = idx+1, event+1 {
		plan.Steps = append(plan.Steps,
			RenameStep{Old: fmt.Sprintf(GetDataKey, event), New: fmt.Sprintf(GetDataKey, idx)},
			RenameStep{Old: fmt.Sprintf(GetHeaderKey, event), New: fmt.Sprintf(GetHeaderKey, idx)},
		)
	}
	return plan
}

// FribShiftPlan moves evt{1..eventRange+1} down by one to evt{0..eventRange}.
// Ascending order is the only safe direction for a shift down: each target
// was vacated by the previous step (or was never a source).
func FribShiftPlan(eventRange int64) Plan {
	plan := Plan{Group: FribEvents}
	if eventRange < 0 {
		return plan
	}
	plan.Steps = make([]RenameStep, 0, 2*(eventRange+1))
	for event := int64(0); event <= eventRange; event++ {
		plan.Steps = append(plan.Steps,
			RenameStep{Old: fmt.Sprintf(FribDataKey, event+1), New: fmt.Sprintf(FribDataKey, event)},
			RenameStep{Old: fmt.Sprintf(FribHeaderKey, event+1), New: fmt.Sprintf(FribHeaderKey, event)},
		)
	}
	return plan
}

// Validate checks the traversal order in isolation: no step may target a
// name that a later step still has to move away, and no two steps may share
// a target.
func (p Plan) Validate() error {
	pending := make(map[string]int, len(p.Steps))
	for _, step := range p.Steps {
		pending[step.Old]++
	}
	targets := make(map[string]bool, len(p.Steps))

	for i, step := range p.Steps {
		pending[step.Old]--
		if pending[step.Old] == 0 {
			delete(pending, step.Old)
		}
		if pending[step.New] > 0 || targets[step.New] {
			return &OrderingError{Step: i, Source: step.Old, Target: step.New}
		}
		targets[step.New] = true
		// Once moved, a former target may legitimately become a source again
		delete(targets, step.Old)
	}
	return nil
}

// Simulate replays the plan against the current keys of g without touching
// the container, reporting the error the real run would hit first.
func (p Plan) Simulate(g *Group) error {
	keys := make(map[string]bool)
	for _, key := range g.Keys() {
		keys[key] = true
	}
	for i, step := range p.Steps {
		if !keys[step.Old] {
			return fmt.Errorf("rename step %d: %w", i, &KeyNotFoundError{Group: g.Name(), Key: step.Old})
		}
		if keys[step.New] {
			return fmt.Errorf("rename step %d: %w", i, &KeyCollisionError{Group: g.Name(), Key: step.New})
		}
		delete(keys, step.Old)
		keys[step.New] = true
	}
	return nil
}

// Apply performs the renames in order. The first failure aborts; renames
// already done stay done.
func (p Plan) Apply(g *Group, progress *Progress) (int, error) {
	if IsDebugEnabled("plan") {
		for i, step := range p.Steps {
			VerboseLog(0, "plan %s step %d: %s -> %s", p.Group, i, step.Old, step.New)
		}
	}
	for i, step := range p.Steps {
		if err := g.Rename(step.Old, step.New); err != nil {
			return i, fmt.Errorf("rename step %d: %w", i, err)
		}
		progress.Step()
	}
	return len(p.Steps), nil
}
