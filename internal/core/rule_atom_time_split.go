package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewAtomTimeSplitRule checks that each atom's program and partner time add
// up to its execution time, that atom ids are unique within an observation
// and that resources are well formed.
func NewAtomTimeSplitRule() domain.Rule { return atomTimeSplitRule{} }

type atomTimeSplitRule struct{}

func (atomTimeSplitRule) Name() string { return "atom_time_split" }

func (r atomTimeSplitRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for o := range p.Observations() {
			seen := make(map[string]struct{}, len(o.Sequence))
			for _, a := range o.Sequence {
				subject := string(o.ID) + "/" + a.ID
				if _, dup := seen[a.ID]; dup {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "observation %s repeats atom %s", o.ID, a.ID))
				}
				seen[a.ID] = struct{}{}
				if err := a.Validate(); err != nil {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "%v", err))
				}
			}
		}
	}
	return res, nil
}
