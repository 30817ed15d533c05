package core

import (
	"context"
	"maps"
	"slices"

	"obscore/pkg/domain"
)

// NewGuidingTargetsRule requires each guider to track one of the
// observation's own targets.
func NewGuidingTargetsRule() domain.Rule { return guidingTargetsRule{} }

type guidingTargetsRule struct{}

func (guidingTargetsRule) Name() string { return "guiding_targets" }

func (r guidingTargetsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for o := range p.Observations() {
			names := o.Targets.Names()
			for _, guider := range slices.Sorted(maps.Keys(o.Guiding)) {
				target := o.Guiding[guider]
				if !slices.Contains(names, target) {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(o.ID),
						"guider %s of observation %s uses unknown target %q", guider, o.ID, target))
				}
			}
		}
	}
	return res, nil
}
