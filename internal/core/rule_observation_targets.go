package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewObservationTargetsRule requires every observation to carry a base
// target, nonsidereal ephemerides to be consistent and acquisition overheads
// to be non-negative.
func NewObservationTargetsRule() domain.Rule { return observationTargetsRule{} }

type observationTargetsRule struct{}

func (observationTargetsRule) Name() string { return "observation_targets" }

func (r observationTargetsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for o := range p.Observations() {
			subject := string(o.ID)
			if len(o.Targets) == 0 {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "observation %s has no targets", o.ID))
			}
			for _, t := range o.Targets {
				nt, ok := t.(domain.NonsiderealTarget)
				if !ok {
					continue
				}
				if err := nt.Validate(); err != nil {
					res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "%v", err))
				}
			}
			if o.AcqOverhead < 0 {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, subject, "observation %s has negative acquisition overhead", o.ID))
			}
		}
	}
	return res, nil
}
