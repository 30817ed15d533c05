package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// GroupID identifies a group within its program.
type GroupID string

// UniqueGroupID identifies a group across programs.
type UniqueGroupID string

// RootGroupID is the ID every program's root group must carry.
const RootGroupID GroupID = "root"

// GroupKind distinguishes AND groups from OR groups.
type GroupKind string

// Group kinds.
const (
	GroupAnd GroupKind = "AND"
	GroupOr  GroupKind = "OR"
)

// UnmarshalText validates the group kind.
func (k *GroupKind) UnmarshalText(text []byte) error {
	v, err := parseLabel("group kind", []GroupKind{GroupAnd, GroupOr}, string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// AndOption is the ordering policy of an AND group's children. CUSTOM is used
// for cadences.
type AndOption int

// AND group ordering policies.
const (
	ConsecOrdered AndOption = iota
	ConsecAnyOrder
	NightOrdered
	NightAnyOrder
	AnyOrder
	CustomOrder
)

var andOptionNames = []string{"CONSEC_ORDERED", "CONSEC_ANYORDER", "NIGHT_ORDERED", "NIGHT_ANYORDER", "ANYORDER", "CUSTOM"}

func (o AndOption) String() string { return ordinalName(andOptionNames, o) }

// MarshalText encodes the option by name.
func (o AndOption) MarshalText() ([]byte, error) { return marshalOrdinal("and option", andOptionNames, o) }

// UnmarshalText decodes an option name.
func (o *AndOption) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[AndOption]("and option", andOptionNames, string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// GroupState is the computed progress state of a group.
type GroupState string

// Group states. NOT_STARTED moves to IN_PROGRESS once progress is recorded and
// to COMPLETE once enough children are observed.
const (
	GroupNotStarted GroupState = "NOT_STARTED"
	GroupInProgress GroupState = "IN_PROGRESS"
	GroupComplete   GroupState = "COMPLETE"
)

// Node is a child of a group: exactly one of a group or an observation.
// Build nodes with GroupNode and ObservationNode; the zero Node is invalid.
type Node struct {
	group       *Group
	observation *Observation
}

// GroupNode wraps a group as a child node.
func GroupNode(g Group) Node { return Node{group: &g} }

// ObservationNode wraps an observation as a child node.
func ObservationNode(o Observation) Node { return Node{observation: &o} }

// Group returns the wrapped group, if the node holds one.
func (n Node) Group() (Group, bool) {
	if n.group == nil {
		return Group{}, false
	}
	return *n.group, true
}

// Observation returns the wrapped observation, if the node holds one.
func (n Node) Observation() (Observation, bool) {
	if n.observation == nil {
		return Observation{}, false
	}
	return *n.observation, true
}

// IsGroup reports whether the node holds a group.
func (n Node) IsGroup() bool { return n.group != nil }

func (n Node) valid() bool { return (n.group == nil) != (n.observation == nil) }

func (n Node) id() string {
	switch {
	case n.group != nil:
		return string(n.group.ID)
	case n.observation != nil:
		return string(n.observation.ID)
	default:
		return ""
	}
}

func (n Node) execTime(progress Progress) (time.Duration, error) {
	if n.group != nil {
		return n.group.ExecTime(progress)
	}
	return n.observation.ExecTime()
}

// observedTotal sums the planned cost of the observed children below n. The
// tree must already have passed checkTotals.
func (n Node) observedTotal() time.Duration {
	if n.group != nil {
		return n.group.observedTotal()
	}
	prog, part := n.observation.sumTimes(false)
	return prog + part
}

func (n Node) observed() bool {
	if n.group != nil {
		return n.group.IsObserved()
	}
	return n.observation.IsObserved()
}

func (n Node) clone() Node {
	switch {
	case n.group != nil:
		return GroupNode(n.group.Clone())
	case n.observation != nil:
		return ObservationNode(n.observation.Clone())
	default:
		return n
	}
}

type nodeJSON struct {
	Group       *Group       `json:"group,omitempty"`
	Observation *Observation `json:"observation,omitempty"`
}

// MarshalJSON encodes the node as {"group": ...} or {"observation": ...}.
func (n Node) MarshalJSON() ([]byte, error) {
	if !n.valid() {
		return nil, errors.New("node must hold exactly one of group or observation")
	}
	return json.Marshal(nodeJSON{Group: n.group, Observation: n.observation})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var aux nodeJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	next := Node{group: aux.Group, observation: aux.Observation}
	if !next.valid() {
		return errors.New("node must hold exactly one of group or observation")
	}
	*n = next
	return nil
}

// Group is a node of a program's tree. An AND group requires its children in
// order, subject to AndOption; an OR group requires any NumberToObserve of
// them. DelayMin and DelayMax bound the gap between children and are nil when
// unset.
type Group struct {
	ID              GroupID        `json:"id"`
	ProgramID       ProgramID      `json:"program_id"`
	Name            string         `json:"group_name"`
	Kind            GroupKind      `json:"kind"`
	NumberToObserve int            `json:"number_to_observe"`
	DelayMin        *time.Duration `json:"delay_min,omitempty"`
	DelayMax        *time.Duration `json:"delay_max,omitempty"`
	AndOption       AndOption      `json:"and_option"`
	Children        []Node         `json:"children"`
}

// UniqueID is the group ID when it already carries the program ID as a prefix,
// otherwise the two joined by a colon.
func (g Group) UniqueID() UniqueGroupID {
	if strings.HasPrefix(string(g.ID), string(g.ProgramID)) {
		return UniqueGroupID(g.ID)
	}
	return UniqueGroupID(fmt.Sprintf("%s:%s", g.ProgramID, g.ID))
}

// IsAnd reports whether g is an AND group.
func (g Group) IsAnd() bool { return g.Kind == GroupAnd }

// IsOr reports whether g is an OR group.
func (g Group) IsOr() bool { return g.Kind == GroupOr }

// IsObservationGroup reports whether every child is an observation.
func (g Group) IsObservationGroup() bool {
	for _, c := range g.Children {
		if c.group != nil {
			return false
		}
	}
	return true
}

// IsSchedulingGroup reports whether any child is a group.
func (g Group) IsSchedulingGroup() bool { return !g.IsObservationGroup() }

// Subgroups yields every descendant group depth first, parents before their
// children. Each range over the sequence walks the tree again.
func (g Group) Subgroups() iter.Seq[Group] {
	return func(yield func(Group) bool) { g.walkGroups(yield) }
}

func (g Group) walkGroups(yield func(Group) bool) bool {
	for _, c := range g.Children {
		if c.group == nil {
			continue
		}
		if !yield(*c.group) || !c.group.walkGroups(yield) {
			return false
		}
	}
	return true
}

// SubgroupIDs yields the IDs of Subgroups in the same order.
func (g Group) SubgroupIDs() iter.Seq[GroupID] {
	return func(yield func(GroupID) bool) {
		for sg := range g.Subgroups() {
			if !yield(sg.ID) {
				return
			}
		}
	}
}

// Observations yields every reachable observation depth first in child order,
// flattening nested groups.
func (g Group) Observations() iter.Seq[Observation] {
	return func(yield func(Observation) bool) { g.walkObservations(yield) }
}

func (g Group) walkObservations(yield func(Observation) bool) bool {
	for _, c := range g.Children {
		switch {
		case c.observation != nil:
			if !yield(*c.observation) {
				return false
			}
		case c.group != nil:
			if !c.group.walkObservations(yield) {
				return false
			}
		}
	}
	return true
}

// Sites is the sorted set of sites of all reachable observations.
func (g Group) Sites() []Site {
	set := map[Site]struct{}{}
	for o := range g.Observations() {
		set[o.Site] = struct{}{}
	}
	out := make([]Site, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// RequiredResources is the union of the resources of all reachable observations.
func (g Group) RequiredResources() []Resource {
	set := resourceSet{}
	for o := range g.Observations() {
		set.add(o.RequiredResources()...)
	}
	return set.sorted()
}

// Wavelengths is the sorted union of the wavelengths of all reachable observations.
func (g Group) Wavelengths() []float64 {
	set := map[float64]struct{}{}
	for o := range g.Observations() {
		for _, w := range o.Wavelengths() {
			set[w] = struct{}{}
		}
	}
	return sortedFloats(set)
}

// Instruments is the union of the instruments of all reachable observations.
func (g Group) Instruments(props ObservatoryProperties) ([]Resource, error) {
	set := resourceSet{}
	for o := range g.Observations() {
		r, ok, err := o.Instrument(props)
		if err != nil {
			return nil, err
		}
		if ok {
			set.add(r)
		}
	}
	return set.sorted(), nil
}

// Constraints aggregates the constraints of the reachable observations that
// declare any, see AggregateConstraints. Observations without constraints are
// skipped. It returns false when no observation declares constraints.
func (g Group) Constraints() (Constraints, bool) {
	var cs []Constraints
	for o := range g.Observations() {
		cs = append(cs, o.ConstraintSet()...)
	}
	return AggregateConstraints(cs)
}

// ObservedChildren counts the children that are observed.
func (g Group) ObservedChildren() int {
	n := 0
	for _, c := range g.Children {
		if c.valid() && c.observed() {
			n++
		}
	}
	return n
}

// IsObserved reports whether at least NumberToObserve children are observed.
func (g Group) IsObserved() bool { return g.ObservedChildren() >= g.NumberToObserve }

// SelectedChildren returns the indexes of the children currently counted
// towards execution. For an AND group these are the first NumberToObserve
// children when nothing has been executed, otherwise up to NumberToObserve
// children following the previous one; when NumberToObserve covers every child
// all of them count. An OR group returns every child since choosing among them
// is left to the scheduler.
func (g Group) SelectedChildren(progress Progress) ([]int, error) {
	if err := g.checkCardinality(); err != nil {
		return nil, err
	}
	prev, hasPrev, err := g.previous(progress)
	if err != nil {
		return nil, err
	}
	n := len(g.Children)
	start, end := 0, n
	if g.IsAnd() && g.NumberToObserve < n {
		if hasPrev {
			start = prev + 1
		}
		end = min(n, start+g.NumberToObserve)
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out, nil
}

// ExecTime is the execution time still to be spent on the group. An AND group
// sums its selected children. An OR group sums every child, an upper bound
// until the scheduler picks the subset.
func (g Group) ExecTime(progress Progress) (time.Duration, error) {
	selected, err := g.SelectedChildren(progress)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, i := range selected {
		c := g.Children[i]
		if !c.valid() {
			return 0, integrityf(KindGroup, string(g.ID), "child %d is neither a group nor an observation", i)
		}
		d, err := c.execTime(progress)
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// TotalUsed sums TotalUsed over the observed children only. The whole subtree
// is checked first, so an invalid group or atom yields a DataIntegrityError
// rather than a total.
func (g Group) TotalUsed() (time.Duration, error) {
	if err := g.checkTotals(); err != nil {
		return 0, err
	}
	return g.observedTotal(), nil
}

func (g Group) observedTotal() time.Duration {
	var total time.Duration
	for _, c := range g.Children {
		if c.valid() && c.observed() {
			total += c.observedTotal()
		}
	}
	return total
}

// ObservedTime sums the program and partner time of every observed atom below
// the group.
func (g Group) ObservedTime() (program, partner time.Duration, err error) {
	if err := g.checkTotals(); err != nil {
		return 0, 0, err
	}
	for o := range g.Observations() {
		prog, part := o.sumTimes(true)
		program += prog
		partner += part
	}
	return program, partner, nil
}

// ProgramUsed sums the program time of every observed atom below the group.
func (g Group) ProgramUsed() (time.Duration, error) {
	prog, _, err := g.ObservedTime()
	return prog, err
}

// PartnerUsed sums the partner time of every observed atom below the group.
func (g Group) PartnerUsed() (time.Duration, error) {
	_, part, err := g.ObservedTime()
	return part, err
}

// checkTotals verifies what the time rollups rely on: every group has a valid
// cardinality and well-formed children, and every atom's split adds up.
func (g Group) checkTotals() error {
	if err := g.checkChildren(); err != nil {
		return err
	}
	for sg := range g.Subgroups() {
		if err := sg.checkChildren(); err != nil {
			return err
		}
	}
	for o := range g.Observations() {
		if err := o.checkSequence(); err != nil {
			return err
		}
	}
	return nil
}

func (g Group) checkChildren() error {
	if err := g.checkCardinality(); err != nil {
		return err
	}
	for i, c := range g.Children {
		if !c.valid() {
			return integrityf(KindGroup, string(g.ID), "child %d is neither a group nor an observation", i)
		}
	}
	return nil
}

// State computes the group's progress state. An AND group starts once progress
// is recorded for it; an OR group, which carries no progress, once any child
// is observed.
func (g Group) State(progress Progress) (GroupState, error) {
	_, hasPrev, err := g.previous(progress)
	if err != nil {
		return "", err
	}
	observed := g.ObservedChildren()
	switch {
	case observed >= g.NumberToObserve:
		return GroupComplete, nil
	case hasPrev || (g.IsOr() && observed > 0):
		return GroupInProgress, nil
	default:
		return GroupNotStarted, nil
	}
}

// Validate checks the structure of the group and all its descendants against
// progress.
func (g Group) Validate(progress Progress) error {
	if g.Kind != GroupAnd && g.Kind != GroupOr {
		return integrityf(KindGroup, string(g.ID), "unknown kind %q", g.Kind)
	}
	if err := g.checkCardinality(); err != nil {
		return err
	}
	if _, _, err := g.previous(progress); err != nil {
		return err
	}
	if g.DelayMin != nil && g.DelayMax != nil && *g.DelayMin > *g.DelayMax {
		return integrityf(KindGroup, string(g.ID), "delay_min %s exceeds delay_max %s", *g.DelayMin, *g.DelayMax)
	}
	for i, c := range g.Children {
		switch {
		case !c.valid():
			return integrityf(KindGroup, string(g.ID), "child %d is neither a group nor an observation", i)
		case c.group != nil:
			if err := c.group.Validate(progress); err != nil {
				return err
			}
		default:
			if err := c.observation.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g Group) Clone() Group {
	if g.Children != nil {
		children := make([]Node, len(g.Children))
		for i, c := range g.Children {
			children[i] = c.clone()
		}
		g.Children = children
	}
	if g.DelayMin != nil {
		d := *g.DelayMin
		g.DelayMin = &d
	}
	if g.DelayMax != nil {
		d := *g.DelayMax
		g.DelayMax = &d
	}
	return g
}

func (g Group) checkCardinality() error {
	if g.NumberToObserve < 0 || g.NumberToObserve > len(g.Children) {
		return integrityf(KindGroup, string(g.ID), "number_to_observe %d outside [0, %d]", g.NumberToObserve, len(g.Children))
	}
	return nil
}

func (g Group) previous(progress Progress) (int, bool, error) {
	prev, ok := progress.Previous(g.ID)
	if !ok {
		return 0, false, nil
	}
	if !g.IsAnd() {
		return 0, false, integrityf(KindGroup, string(g.ID), "progress recorded on a %s group", g.Kind)
	}
	if prev < 0 || prev >= len(g.Children) {
		return 0, false, integrityf(KindGroup, string(g.ID), "previous %d outside [0, %d)", prev, len(g.Children))
	}
	return prev, true, nil
}

// findGroup returns a pointer to the group with the given ID or unique ID, g
// included.
func (g *Group) findGroup(id string) *Group {
	if string(g.ID) == id || string(g.UniqueID()) == id {
		return g
	}
	for _, c := range g.Children {
		if c.group == nil {
			continue
		}
		if found := c.group.findGroup(id); found != nil {
			return found
		}
	}
	return nil
}

// findObservation returns a pointer to the observation with the given ID.
func (g *Group) findObservation(id ObservationID) *Observation {
	for _, c := range g.Children {
		switch {
		case c.observation != nil && c.observation.ID == id:
			return c.observation
		case c.group != nil:
			if found := c.group.findObservation(id); found != nil {
				return found
			}
		}
	}
	return nil
}
