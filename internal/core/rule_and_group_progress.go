package core

import (
	"context"

	"obscore/pkg/domain"
)

// NewAndGroupProgressRule requires progress pointers to name an existing AND
// group and to index one of its children.
func NewAndGroupProgressRule() domain.Rule { return andGroupProgressRule{} }

type andGroupProgressRule struct{}

func (andGroupProgressRule) Name() string { return "and_group_progress" }

func (r andGroupProgressRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		for _, id := range p.Progress.GroupIDs() {
			prev, _ := p.Progress.Previous(id)
			g, err := p.GetGroup(string(id))
			switch {
			case err != nil:
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(id), "progress recorded for unknown group %s", id))
			case !g.IsAnd():
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(id), "progress recorded on %s group %s", g.Kind, id))
			case prev < 0 || prev >= len(g.Children):
				res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(id),
					"group %s previous %d outside [0, %d)", id, prev, len(g.Children)))
			}
		}
	}
	return res, nil
}
