package core

import (
	"context"
	"fmt"

	"obscore/pkg/domain"
)

// TimeAllocationRuleName names the over-allocation rule in violations.
const TimeAllocationRuleName = "time_allocation"

// NewTimeAllocationRule warns when a program has used more program or
// partner time than it was awarded. Over-allocation never blocks a commit.
func NewTimeAllocationRule() domain.Rule { return timeAllocationRule{} }

type timeAllocationRule struct{}

func (timeAllocationRule) Name() string { return TimeAllocationRuleName }

func (r timeAllocationRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		msgs, err := overAllocation(p)
		if err != nil {
			// the structural rules report the broken tree
			continue
		}
		for _, msg := range msgs {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      r.Name(),
				Severity:  domain.SeverityWarn,
				Message:   msg,
				ProgramID: p.ID,
				Subject:   string(p.ID),
			})
		}
	}
	return res, nil
}

// overAllocation describes each budget category p has overspent.
func overAllocation(p Program) ([]string, error) {
	used, err := p.TimeUsed()
	if err != nil {
		return nil, err
	}
	var out []string
	if r := p.ProgramAwarded() - used.ProgramUsed; r < 0 {
		out = append(out, fmt.Sprintf("program time over-allocated by %s (used %s of %s)", -r, used.ProgramUsed, p.ProgramAwarded()))
	}
	if r := p.PartnerAwarded() - used.PartnerUsed; r < 0 {
		out = append(out, fmt.Sprintf("partner time over-allocated by %s (used %s of %s)", -r, used.PartnerUsed, p.PartnerAwarded()))
	}
	return out, nil
}
