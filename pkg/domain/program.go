package domain

import (
	"iter"
	"slices"
	"time"
)

// ProgramID identifies a program, for example "GN-2018B-Q-101".
type ProgramID string

// FuzzyBoundary is the tolerance applied when testing a time against a
// program's start and end.
const FuzzyBoundary = 14 * 24 * time.Hour

// Program is the root of an observation tree. Root must carry RootGroupID and
// every group and observation below it belongs to this program alone.
// Progress holds the AND group progress pointers of the tree.
type Program struct {
	ID            ProgramID        `json:"id"`
	InternalID    string           `json:"internal_id"`
	Semester      *Semester        `json:"semester,omitempty"`
	Band          Band             `json:"band"`
	Thesis        bool             `json:"thesis"`
	Mode          ProgramMode      `json:"mode"`
	Type          ProgramType      `json:"type,omitempty"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	AllocatedTime []TimeAllocation `json:"allocated_time"`
	Root          Group            `json:"root_group"`
	TooType       *TooType         `json:"too_type,omitempty"`
	Progress      Progress         `json:"progress"`
}

// ProgramAwarded sums program time over all allocations.
func (p Program) ProgramAwarded() time.Duration {
	var total time.Duration
	for _, a := range p.AllocatedTime {
		total += a.ProgramAwarded
	}
	return total
}

// PartnerAwarded sums partner time over all allocations.
func (p Program) PartnerAwarded() time.Duration {
	var total time.Duration
	for _, a := range p.AllocatedTime {
		total += a.PartnerAwarded
	}
	return total
}

// TotalAwarded is ProgramAwarded plus PartnerAwarded.
func (p Program) TotalAwarded() time.Duration { return p.ProgramAwarded() + p.PartnerAwarded() }

// ProgramUsed is the program time of every observed atom in the tree.
func (p Program) ProgramUsed() (time.Duration, error) { return p.Root.ProgramUsed() }

// PartnerUsed is the partner time of every observed atom in the tree.
func (p Program) PartnerUsed() (time.Duration, error) { return p.Root.PartnerUsed() }

// TotalUsed is ProgramUsed plus PartnerUsed.
func (p Program) TotalUsed() (time.Duration, error) {
	u, err := p.TimeUsed()
	return u.TotalUsed(), err
}

// RemainingProgramTime is the awarded program time not yet used. It is
// negative when the program is over-allocated; the model does not prevent that.
func (p Program) RemainingProgramTime() (time.Duration, error) {
	used, err := p.ProgramUsed()
	if err != nil {
		return 0, err
	}
	return p.ProgramAwarded() - used, nil
}

// RemainingPartnerTime is the awarded partner time not yet used.
func (p Program) RemainingPartnerTime() (time.Duration, error) {
	used, err := p.PartnerUsed()
	if err != nil {
		return 0, err
	}
	return p.PartnerAwarded() - used, nil
}

// TimeUsed reports used time in the TimeUsed form. Every aggregate of the tree
// fails with a DataIntegrityError when the tree is invalid.
func (p Program) TimeUsed() (TimeUsed, error) {
	prog, part, err := p.Root.ObservedTime()
	if err != nil {
		return TimeUsed{}, err
	}
	return TimeUsed{ProgramUsed: prog, PartnerUsed: part}, nil
}

// Active reports whether t falls within the program's dates widened by
// FuzzyBoundary on both sides.
func (p Program) Active(t time.Time) bool {
	return !t.Before(p.Start.Add(-FuzzyBoundary)) && !t.After(p.End.Add(FuzzyBoundary))
}

// Observations yields every observation of the tree, see Group.Observations.
func (p Program) Observations() iter.Seq[Observation] { return p.Root.Observations() }

// GroupIDs yields the root group ID followed by every subgroup ID.
func (p Program) GroupIDs() iter.Seq[GroupID] {
	return func(yield func(GroupID) bool) {
		if !yield(p.Root.ID) {
			return
		}
		for id := range p.Root.SubgroupIDs() {
			if !yield(id) {
				return
			}
		}
	}
}

// GetGroup finds a group by ID or unique ID.
func (p Program) GetGroup(id string) (Group, error) {
	root := p.Root
	g := root.findGroup(id)
	if g == nil {
		return Group{}, NotFoundError{Kind: KindGroup, ID: id}
	}
	return *g, nil
}

// GetObservation finds an observation by ID.
func (p Program) GetObservation(id ObservationID) (Observation, error) {
	root := p.Root
	o := root.findObservation(id)
	if o == nil {
		return Observation{}, NotFoundError{Kind: KindObservation, ID: string(id)}
	}
	return *o, nil
}

// GroupState computes the state of the group with the given ID.
func (p Program) GroupState(id string) (GroupState, error) {
	g, err := p.GetGroup(id)
	if err != nil {
		return "", err
	}
	return g.State(p.Progress)
}

// ExecTime is the execution time still to be spent on the whole tree.
func (p Program) ExecTime() (time.Duration, error) { return p.Root.ExecTime(p.Progress) }

// Clone returns a deep copy sharing nothing mutable with p.
func (p Program) Clone() Program {
	p.AllocatedTime = slices.Clone(p.AllocatedTime)
	p.Root = p.Root.Clone()
	if p.Semester != nil {
		s := *p.Semester
		p.Semester = &s
	}
	if p.TooType != nil {
		t := *p.TooType
		p.TooType = &t
	}
	return p
}

// Validate checks every structural invariant of the program and its tree and
// returns the first violation as a DataIntegrityError.
func (p Program) Validate() error {
	if p.ID == "" {
		return integrityf(KindProgram, "", "missing id")
	}
	if p.Root.ID != RootGroupID {
		return integrityf(KindProgram, string(p.ID), "root group is %q, want %q", p.Root.ID, RootGroupID)
	}
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return integrityf(KindProgram, string(p.ID), "end %s before start %s", p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	if p.Band != 0 && !p.Band.Valid() {
		return integrityf(KindProgram, string(p.ID), "invalid band %d", p.Band)
	}
	groups := map[GroupID]struct{}{}
	check := func(g Group) error {
		if _, dup := groups[g.ID]; dup {
			return integrityf(KindGroup, string(g.ID), "duplicate group id")
		}
		groups[g.ID] = struct{}{}
		if g.ProgramID != p.ID {
			return integrityf(KindGroup, string(g.ID), "belongs to program %q, not %q", g.ProgramID, p.ID)
		}
		return nil
	}
	if err := check(p.Root); err != nil {
		return err
	}
	for g := range p.Root.Subgroups() {
		if err := check(g); err != nil {
			return err
		}
	}
	observations := map[ObservationID]struct{}{}
	for o := range p.Observations() {
		if _, dup := observations[o.ID]; dup {
			return integrityf(KindObservation, string(o.ID), "duplicate observation id")
		}
		observations[o.ID] = struct{}{}
		if p.TooType != nil && o.TooType != nil && *o.TooType > *p.TooType {
			return integrityf(KindObservation, string(o.ID), "too type %s exceeds program too type %s", *o.TooType, *p.TooType)
		}
	}
	for _, id := range p.Progress.GroupIDs() {
		if _, ok := groups[id]; !ok {
			return integrityf(KindProgram, string(p.ID), "progress recorded for unknown group %s", id)
		}
	}
	return p.Root.Validate(p.Progress)
}

// SetPrevious records child idx as the last executed child of an AND group.
func (p *Program) SetPrevious(groupID GroupID, idx int) error {
	g, err := p.GetGroup(string(groupID))
	if err != nil {
		return err
	}
	if !g.IsAnd() {
		return integrityf(KindGroup, string(g.ID), "progress recorded on a %s group", g.Kind)
	}
	if idx < 0 || idx >= len(g.Children) {
		return integrityf(KindGroup, string(g.ID), "previous %d outside [0, %d)", idx, len(g.Children))
	}
	p.Progress = p.Progress.WithPrevious(g.ID, idx)
	return nil
}

// ClearPrevious removes the progress of an AND group.
func (p *Program) ClearPrevious(groupID GroupID) error {
	g, err := p.GetGroup(string(groupID))
	if err != nil {
		return err
	}
	p.Progress = p.Progress.WithoutPrevious(g.ID)
	return nil
}

// UpdateObservation applies mutate to the observation with the given ID in
// place. Call it on a clone.
func (p *Program) UpdateObservation(id ObservationID, mutate func(*Observation) error) error {
	o := p.Root.findObservation(id)
	if o == nil {
		return NotFoundError{Kind: KindObservation, ID: string(id)}
	}
	return mutate(o)
}

// MarkAtomObserved flags an atom as observed with the given QA state.
func (p *Program) MarkAtomObserved(obsID ObservationID, atomID string, qa QAState) error {
	return p.UpdateObservation(obsID, func(o *Observation) error {
		for i := range o.Sequence {
			if o.Sequence[i].ID == atomID {
				o.Sequence[i].Observed = true
				o.Sequence[i].QAState = qa
				return nil
			}
		}
		return NotFoundError{Kind: KindAtom, ID: string(obsID) + "/" + atomID}
	})
}

// ParentGroup returns the group whose direct children include the
// observation with the given ID, along with the child's index.
func (p Program) ParentGroup(id ObservationID) (Group, int, error) {
	var (
		parent Group
		index  = -1
	)
	var walk func(g Group) bool
	walk = func(g Group) bool {
		for i, c := range g.Children {
			if c.observation != nil && c.observation.ID == id {
				parent, index = g, i
				return true
			}
			if c.group != nil && walk(*c.group) {
				return true
			}
		}
		return false
	}
	if !walk(p.Root) {
		return Group{}, 0, NotFoundError{Kind: KindObservation, ID: string(id)}
	}
	return parent, index, nil
}
