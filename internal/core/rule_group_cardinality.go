package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewGroupCardinalityRule checks each group's kind, number to observe,
// delays and children.
func NewGroupCardinalityRule() domain.Rule { return groupCardinalityRule{} }

type groupCardinalityRule struct{}

func (groupCardinalityRule) Name() string { return "group_cardinality" }

func (r groupCardinalityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for _, g := range allGroups(p) {
			subject := string(g.ID)
			if g.Kind != domain.GroupAnd && g.Kind != domain.GroupOr {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "group %s has unknown kind %q", g.ID, g.Kind))
			}
			if g.NumberToObserve < 0 || g.NumberToObserve > len(g.Children) {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject,
					"group %s number_to_observe %d outside [0, %d]", g.ID, g.NumberToObserve, len(g.Children)))
			}
			if g.DelayMin != nil && g.DelayMax != nil && *g.DelayMin > *g.DelayMax {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject,
					"group %s delay_min %s exceeds delay_max %s", g.ID, *g.DelayMin, *g.DelayMax))
			}
			for i, c := range g.Children {
				_, isGroup := c.Group()
				_, isObs := c.Observation()
				if isGroup == isObs {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject,
						"group %s child %d is neither a group nor an observation", g.ID, i))
				}
			}
		}
	}
	return res, nil
}
