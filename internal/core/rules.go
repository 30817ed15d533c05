package core

import (
	"fmt"

	"obscore/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in integrity
// policy set. The instrument rule is registered only when props is non-nil.
func NewDefaultRulesEngine(props domain.ObservatoryProperties) *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewProgramMetadataRule())
	engine.Register(NewUniqueIDsRule())
	engine.Register(NewGroupCardinalityRule())
	engine.Register(NewAndGroupProgressRule())
	engine.Register(NewAtomTimeSplitRule())
	engine.Register(NewObservationTargetsRule())
	engine.Register(NewGuidingTargetsRule())
	engine.Register(NewTooTypeRule())
	if props != nil {
		engine.Register(NewSingleInstrumentRule(props))
	}
	engine.Register(NewTimeAllocationRule())
	return engine
}

// changedPrograms returns the post-transaction state of every program
// created or updated by changes, once each, in change order.
func changedPrograms(view domain.RuleView, changes []Change) []Program {
	seen := make(map[ProgramID]struct{}, len(changes))
	out := make([]Program, 0, len(changes))
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		if _, dup := seen[change.ProgramID]; dup {
			continue
		}
		seen[change.ProgramID] = struct{}{}
		if p, ok := view.FindProgram(change.ProgramID); ok {
			out = append(out, p)
		}
	}
	return out
}

// allGroups returns the root group followed by every subgroup.
func allGroups(p Program) []domain.Group {
	groups := []domain.Group{p.Root}
	for g := range p.Root.Subgroups() {
		groups = append(groups, g)
	}
	return groups
}

func blockf(rule string, program ProgramID, subject, format string, args ...any) Violation {
	return Violation{
		Rule:      rule,
		Severity:  SeverityBlock,
		Message:   fmt.Sprintf(format, args...),
		ProgramID: program,
		Subject:   subject,
	}
}
