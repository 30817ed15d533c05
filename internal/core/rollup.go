package core

import (
	"encoding/json"
	"fmt"
	"time"

	"obscore/pkg/domain"
)

// ReportDuration is a duration encoded in reports as a Go duration string
// such as "3h15m0s".
type ReportDuration time.Duration

// Duration converts back to time.Duration.
func (d ReportDuration) Duration() time.Duration { return time.Duration(d) }

// MarshalJSON implements json.Marshaler.
func (d ReportDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *ReportDuration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = ReportDuration(v)
	return nil
}

// ProgramRollup is the computed time accounting and progress of a program.
type ProgramRollup struct {
	ProgramID        ProgramID               `json:"program_id"`
	GeneratedAt      time.Time               `json:"generated_at"`
	Band             domain.Band             `json:"band"`
	Active           bool                    `json:"active"`
	ExecTime         ReportDuration          `json:"exec_time"`
	ProgramAwarded   ReportDuration          `json:"program_awarded"`
	PartnerAwarded   ReportDuration          `json:"partner_awarded"`
	ProgramUsed      ReportDuration          `json:"program_used"`
	PartnerUsed      ReportDuration          `json:"partner_used"`
	RemainingProgram ReportDuration          `json:"remaining_program"`
	RemainingPartner ReportDuration          `json:"remaining_partner"`
	Allocations      []domain.TimeAllocation `json:"allocations,omitempty"`
	Groups           []GroupRollup           `json:"groups"`
	Observations     []ObservationRollup     `json:"observations"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// GroupRollup summarizes one group. Selected lists the child indexes counted
// towards the group's execution time.
type GroupRollup struct {
	ID               GroupID              `json:"id"`
	UniqueID         domain.UniqueGroupID `json:"unique_id"`
	Kind             domain.GroupKind     `json:"kind"`
	NumberToObserve  int                  `json:"number_to_observe"`
	Children         int                  `json:"children"`
	ObservedChildren int                  `json:"observed_children"`
	Selected         []int                `json:"selected"`
	State            domain.GroupState    `json:"state"`
	ExecTime         ReportDuration       `json:"exec_time"`
	ProgramUsed      ReportDuration       `json:"program_used"`
	PartnerUsed      ReportDuration       `json:"partner_used"`
}

// ObservationRollup summarizes one observation. PlannedTime is the program
// and partner time of the whole sequence, the used fields cover observed
// atoms only.
type ObservationRollup struct {
	ID            ObservationID            `json:"id"`
	Group         GroupID                  `json:"group"`
	Status        domain.ObservationStatus `json:"status"`
	Active        bool                     `json:"active"`
	Instrument    string                   `json:"instrument,omitempty"`
	Atoms         int                      `json:"atoms"`
	AtomsObserved int                      `json:"atoms_observed"`
	Observed      bool                     `json:"observed"`
	ExecTime      ReportDuration           `json:"exec_time"`
	PlannedTime   ReportDuration           `json:"planned_time"`
	ProgramUsed   ReportDuration           `json:"program_used"`
	PartnerUsed   ReportDuration           `json:"partner_used"`
}

// BuildRollup computes the rollup of p at now. Instruments are resolved only
// when props is non-nil.
func BuildRollup(p Program, props domain.ObservatoryProperties, now time.Time) (ProgramRollup, error) {
	exec, err := p.ExecTime()
	if err != nil {
		return ProgramRollup{}, err
	}
	used, err := p.TimeUsed()
	if err != nil {
		return ProgramRollup{}, err
	}
	warnings, err := overAllocation(p)
	if err != nil {
		return ProgramRollup{}, err
	}
	r := ProgramRollup{
		ProgramID:        p.ID,
		GeneratedAt:      now.UTC(),
		Band:             p.Band,
		Active:           p.Active(now),
		ExecTime:         ReportDuration(exec),
		ProgramAwarded:   ReportDuration(p.ProgramAwarded()),
		PartnerAwarded:   ReportDuration(p.PartnerAwarded()),
		ProgramUsed:      ReportDuration(used.ProgramUsed),
		PartnerUsed:      ReportDuration(used.PartnerUsed),
		RemainingProgram: ReportDuration(p.ProgramAwarded() - used.ProgramUsed),
		RemainingPartner: ReportDuration(p.PartnerAwarded() - used.PartnerUsed),
		Allocations:      p.AllocatedTime,
		Warnings:         warnings,
	}
	for _, g := range allGroups(p) {
		gr, err := rollupGroup(g, p.Progress)
		if err != nil {
			return ProgramRollup{}, err
		}
		r.Groups = append(r.Groups, gr)
	}
	for o := range p.Observations() {
		or, err := rollupObservation(p, o, props)
		if err != nil {
			return ProgramRollup{}, err
		}
		r.Observations = append(r.Observations, or)
	}
	return r, nil
}

func rollupGroup(g domain.Group, progress domain.Progress) (GroupRollup, error) {
	selected, err := g.SelectedChildren(progress)
	if err != nil {
		return GroupRollup{}, err
	}
	exec, err := g.ExecTime(progress)
	if err != nil {
		return GroupRollup{}, err
	}
	state, err := g.State(progress)
	if err != nil {
		return GroupRollup{}, err
	}
	prog, part, err := g.ObservedTime()
	if err != nil {
		return GroupRollup{}, err
	}
	return GroupRollup{
		ID:               g.ID,
		UniqueID:         g.UniqueID(),
		Kind:             g.Kind,
		NumberToObserve:  g.NumberToObserve,
		Children:         len(g.Children),
		ObservedChildren: g.ObservedChildren(),
		Selected:         selected,
		State:            state,
		ExecTime:         ReportDuration(exec),
		ProgramUsed:      ReportDuration(prog),
		PartnerUsed:      ReportDuration(part),
	}, nil
}

func rollupObservation(p Program, o domain.Observation, props domain.ObservatoryProperties) (ObservationRollup, error) {
	parent, _, err := p.ParentGroup(o.ID)
	if err != nil {
		return ObservationRollup{}, err
	}
	prog, part, err := o.ObservedTime()
	if err != nil {
		return ObservationRollup{}, err
	}
	exec, err := o.ExecTime()
	if err != nil {
		return ObservationRollup{}, err
	}
	planned, err := o.TotalUsed()
	if err != nil {
		return ObservationRollup{}, err
	}
	r := ObservationRollup{
		ID:          o.ID,
		Group:       parent.ID,
		Status:      o.Status,
		Active:      o.Active,
		Atoms:       len(o.Sequence),
		Observed:    o.IsObserved(),
		ExecTime:    ReportDuration(exec),
		PlannedTime: ReportDuration(planned),
		ProgramUsed: ReportDuration(prog),
		PartnerUsed: ReportDuration(part),
	}
	for _, a := range o.Sequence {
		if a.Observed {
			r.AtomsObserved++
		}
	}
	if props != nil {
		inst, ok, err := o.Instrument(props)
		if err != nil {
			return ObservationRollup{}, err
		}
		if ok {
			r.Instrument = inst.ID
		}
	}
	return r, nil
}

// groupStates maps every group of p to its state. Groups whose state cannot
// be computed are left out.
func groupStates(p Program) map[GroupID]domain.GroupState {
	out := make(map[GroupID]domain.GroupState)
	for _, g := range allGroups(p) {
		if st, err := g.State(p.Progress); err == nil {
			out[g.ID] = st
		}
	}
	return out
}
