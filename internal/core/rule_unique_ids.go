package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewUniqueIDsRule requires group and observation ids to be unique within a
// program, observation ids to be unique across programs, and every group to
// belong to the program that contains it.
func NewUniqueIDsRule() domain.Rule { return uniqueIDsRule{} }

type uniqueIDsRule struct{}

func (uniqueIDsRule) Name() string { return "unique_ids" }

func (r uniqueIDsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	changed := changedPrograms(view, changes)
	if len(changed) == 0 {
		return res, nil
	}

	owners := make(map[ObservationID][]ProgramID)
	for _, p := range view.ListPrograms() {
		for o := range p.Observations() {
			owners[o.ID] = append(owners[o.ID], p.ID)
		}
	}

	for _, p := range changed {
		groups := make(map[GroupID]struct{})
		for _, g := range allGroups(p) {
			if _, dup := groups[g.ID]; dup {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(g.ID), "duplicate group id %s", g.ID))
			}
			groups[g.ID] = struct{}{}
			if g.ProgramID != p.ID {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(g.ID), "group %s belongs to program %q", g.ID, g.ProgramID))
			}
		}
		observations := make(map[ObservationID]struct{})
		for o := range p.Observations() {
			if _, dup := observations[o.ID]; dup {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(o.ID), "duplicate observation id %s", o.ID))
				continue
			}
			observations[o.ID] = struct{}{}
			for _, owner := range owners[o.ID] {
				if owner != p.ID {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(o.ID), "observation %s also belongs to program %s", o.ID, owner))
					break
				}
			}
		}
	}
	return res, nil
}
