package core

import (
	"context"
	"time"

	"obscore/pkg/domain"
)

// NewProgramMetadataRule checks the program-level fields: the root group id,
// the band and the start and end dates.
func NewProgramMetadataRule() domain.Rule { return programMetadataRule{} }

type programMetadataRule struct{}

func (programMetadataRule) Name() string { return "program_metadata" }

func (r programMetadataRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range changedPrograms(view, changes) {
		if p.Root.ID != domain.RootGroupID {
			res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(p.Root.ID), "root group is %q, want %q", p.Root.ID, domain.RootGroupID))
		}
		if p.Band != 0 && !p.Band.Valid() {
			res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(p.ID), "invalid band %d", p.Band))
		}
		if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
			res.Violations = append(res.Violations, blockf(r.Name(), p.ID, string(p.ID), "end %s before start %s",
				p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339)))
		}
	}
	return res, nil
}
