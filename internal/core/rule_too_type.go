package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewTooTypeRule forbids observations from claiming a target of opportunity
// type more urgent than their program's.
func NewTooTypeRule() domain.Rule { return tooTypeRule{} }

type tooTypeRule struct{}

func (tooTypeRule) Name() string { return "too_type" }

func (r tooTypeRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		if p.TooType == nil {
			continue
		}
		for o := range p.Observations() {
			if o.TooType != nil && *o.TooType > *p.TooType {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(o.ID),
					"observation %s too type %s exceeds program too type %s", o.ID, *o.TooType, *p.TooType))
			}
		}
	}
	return res, nil
}
