package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewSingleInstrumentRule requires every observation to use at most one
// instrument as judged by props.
func NewSingleInstrumentRule(props domain.ObservatoryProperties) domain.Rule {
	return singleInstrumentRule{props: props}
}

type singleInstrumentRule struct {
	props domain.ObservatoryProperties
}

func (singleInstrumentRule) Name() string { return "single_instrument" }

func (r singleInstrumentRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for o := range p.Observations() {
			if _, _, err := o.Instrument(r.props); err != nil {
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(o.ID), "%v", err))
			}
		}
	}
	return res, nil
}
