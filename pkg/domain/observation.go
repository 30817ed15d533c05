package domain

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"time"
)

// ObservationID identifies an observation, for example "GN-2018B-Q-101-123".
type ObservationID string

// ObservationStatus is the lifecycle status of an observation in the database.
type ObservationStatus int

// Observation statuses.
const (
	StatusNew ObservationStatus = iota
	StatusIncluded
	StatusProposed
	StatusApproved
	StatusForReview
	StatusOnHold
	StatusReady
	StatusOngoing
	StatusObserved
	StatusInactive
	StatusPhase2
)

var observationStatusNames = []string{
	"NEW", "INCLUDED", "PROPOSED", "APPROVED", "FOR_REVIEW", "ON_HOLD",
	"READY", "ONGOING", "OBSERVED", "INACTIVE", "PHASE2",
}

func (s ObservationStatus) String() string { return ordinalName(observationStatusNames, s) }

// MarshalText encodes the status by name.
func (s ObservationStatus) MarshalText() ([]byte, error) {
	return marshalOrdinal("observation status", observationStatusNames, s)
}

// UnmarshalText decodes a status name.
func (s *ObservationStatus) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[ObservationStatus]("observation status", observationStatusNames, string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority affects scoring. Levels are ordered LOW < MEDIUM < HIGH.
type Priority int

// Priority levels.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

var priorityNames = []string{"LOW", "MEDIUM", "HIGH"}

func (p Priority) String() string { return ordinalName(priorityNames, p) }

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) { return marshalOrdinal("priority", priorityNames, p) }

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[Priority]("priority", priorityNames, string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SetupTimeType is the setup needed when starting or resuming an observation.
type SetupTimeType int

// Setup kinds.
const (
	SetupNone SetupTimeType = iota
	SetupReacquisition
	SetupFull
)

var setupTimeTypeNames = []string{"NONE", "REACQUISITION", "FULL"}

func (s SetupTimeType) String() string { return ordinalName(setupTimeTypeNames, s) }

// MarshalText encodes the setup kind by name.
func (s SetupTimeType) MarshalText() ([]byte, error) {
	return marshalOrdinal("setup time type", setupTimeTypeNames, s)
}

// UnmarshalText decodes a setup kind name.
func (s *SetupTimeType) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[SetupTimeType]("setup time type", setupTimeTypeNames, string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ObservationClass is the class of an observation. The order is the
// preference order used when an observation's steps carry several classes.
type ObservationClass int

// Observation classes in preference order.
const (
	ClassScience ObservationClass = iota
	ClassProgCal
	ClassPartnerCal
	ClassAcq
	ClassAcqCal
	ClassDayCal
)

var observationClassNames = []string{"SCIENCE", "PROGCAL", "PARTNERCAL", "ACQ", "ACQCAL", "DAYCAL"}

func (c ObservationClass) String() string { return ordinalName(observationClassNames, c) }

// MarshalText encodes the class by name.
func (c ObservationClass) MarshalText() ([]byte, error) {
	return marshalOrdinal("observation class", observationClassNames, c)
}

// UnmarshalText decodes a class name.
func (c *ObservationClass) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[ObservationClass]("observation class", observationClassNames, string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// SelectObservationClass returns the preferred class among classes, or false
// when there are none.
func SelectObservationClass(classes []ObservationClass) (ObservationClass, bool) {
	if len(classes) == 0 {
		return 0, false
	}
	return slices.Min(classes), true
}

// ObservationMode is the instrument configuration family used for acquisition
// and calibration estimates.
type ObservationMode string

// Observation modes.
const (
	ModeUnknown  ObservationMode = "unknown"
	ModeImaging  ObservationMode = "imaging"
	ModeLongslit ObservationMode = "longslit"
	ModeIFU      ObservationMode = "ifu"
	ModeMOS      ObservationMode = "mos"
	ModeXD       ObservationMode = "xd"
	ModeCoron    ObservationMode = "coron"
	ModeNRM      ObservationMode = "nrm"
)

// ObservatoryProperties is the observatory-specific policy the model consults.
// The model never embeds instrument knowledge itself.
type ObservatoryProperties interface {
	IsInstrument(Resource) bool
	AcquisitionTime(Resource, ObservationMode) (time.Duration, bool)
}

var errNoProperties = errors.New("observatory properties required")

// Observation is a single observation: a sequence of atoms with its targets,
// guiding assignments and optional constraints.
type Observation struct {
	ID            ObservationID     `json:"id"`
	InternalID    string            `json:"internal_id"`
	Order         int               `json:"order"`
	Title         string            `json:"title"`
	Site          Site              `json:"site"`
	Status        ObservationStatus `json:"status"`
	Active        bool              `json:"active"`
	Priority      Priority          `json:"priority"`
	SetupTimeType SetupTimeType     `json:"setuptime_type"`
	AcqOverhead   time.Duration     `json:"acq_overhead"`
	Class         ObservationClass  `json:"obs_class"`
	Targets       Targets           `json:"targets"`
	// Guiding maps a guider resource ID to the name of its target.
	Guiding     map[string]string `json:"guiding,omitempty"`
	Sequence    []Atom            `json:"sequence"`
	Constraints *Constraints      `json:"constraints,omitempty"`
	TooType     *TooType          `json:"too_type,omitempty"`
}

// BaseTarget returns the first target. An observation without targets is
// malformed and yields a NotFoundError.
func (o Observation) BaseTarget() (Target, error) {
	if len(o.Targets) == 0 {
		return nil, NotFoundError{Kind: KindTarget, ID: string(o.ID) + "/base"}
	}
	return o.Targets[0], nil
}

// Target looks up a target by name.
func (o Observation) Target(name string) (Target, error) {
	for _, t := range o.Targets {
		if t.Details().Name == name {
			return t, nil
		}
	}
	return nil, NotFoundError{Kind: KindTarget, ID: string(o.ID) + "/" + name}
}

// Atom looks up an atom of the sequence by ID.
func (o Observation) Atom(id string) (Atom, error) {
	for _, a := range o.Sequence {
		if a.ID == id {
			return a, nil
		}
	}
	return Atom{}, NotFoundError{Kind: KindAtom, ID: string(o.ID) + "/" + id}
}

// ExecTime is the acquisition overhead plus the execution time of every atom.
// An atom whose time split does not add up is a DataIntegrityError.
func (o Observation) ExecTime() (time.Duration, error) {
	if err := o.checkSequence(); err != nil {
		return 0, err
	}
	total := o.AcqOverhead
	for _, a := range o.Sequence {
		total += a.ExecTime
	}
	return total, nil
}

// ProgramUsed sums program time over the whole sequence, observed or not.
func (o Observation) ProgramUsed() (time.Duration, error) {
	prog, _, err := o.plannedTime()
	return prog, err
}

// PartnerUsed sums partner time over the whole sequence, observed or not.
func (o Observation) PartnerUsed() (time.Duration, error) {
	_, part, err := o.plannedTime()
	return part, err
}

// TotalUsed is the planned cost of the sequence: program plus partner time of
// every atom regardless of its observed flag. ObservedTime gives the incurred
// cost.
func (o Observation) TotalUsed() (time.Duration, error) {
	prog, part, err := o.plannedTime()
	return prog + part, err
}

// ObservedTime returns the program and partner time of the observed atoms only.
func (o Observation) ObservedTime() (program, partner time.Duration, err error) {
	if err := o.checkSequence(); err != nil {
		return 0, 0, err
	}
	program, partner = o.sumTimes(true)
	return program, partner, nil
}

func (o Observation) plannedTime() (program, partner time.Duration, err error) {
	if err := o.checkSequence(); err != nil {
		return 0, 0, err
	}
	program, partner = o.sumTimes(false)
	return program, partner, nil
}

// sumTimes adds up the time split of the sequence without checking it.
func (o Observation) sumTimes(observedOnly bool) (program, partner time.Duration) {
	for _, a := range o.Sequence {
		if observedOnly && !a.Observed {
			continue
		}
		program += a.ProgTime
		partner += a.PartTime
	}
	return program, partner
}

func (o Observation) checkSequence() error {
	for _, a := range o.Sequence {
		if err := a.checkTimes(); err != nil {
			return err
		}
	}
	return nil
}

// IsObserved reports whether every atom has been observed. An observation
// with an empty sequence has nothing executed and is not observed.
func (o Observation) IsObserved() bool {
	if len(o.Sequence) == 0 {
		return false
	}
	for _, a := range o.Sequence {
		if !a.Observed {
			return false
		}
	}
	return true
}

// RequiredResources is the union of the atoms' resources, sorted by ID.
func (o Observation) RequiredResources() []Resource {
	set := resourceSet{}
	for _, a := range o.Sequence {
		set.add(a.Resources...)
	}
	return set.sorted()
}

// Instrument returns the single instrument among the required resources, or
// false when there is none. More than one instrument is a DataIntegrityError.
func (o Observation) Instrument(props ObservatoryProperties) (Resource, bool, error) {
	if props == nil {
		return Resource{}, false, errNoProperties
	}
	var (
		found Resource
		ok    bool
	)
	for _, r := range o.RequiredResources() {
		if !props.IsInstrument(r) {
			continue
		}
		if ok {
			return Resource{}, false, integrityf(KindObservation, string(o.ID), "multiple instruments %s and %s", found.ID, r.ID)
		}
		found, ok = r, true
	}
	return found, ok, nil
}

// Wavelengths is the sorted union of the atoms' wavelengths.
func (o Observation) Wavelengths() []float64 {
	set := map[float64]struct{}{}
	for _, a := range o.Sequence {
		for _, w := range a.Wavelengths {
			set[w] = struct{}{}
		}
	}
	return sortedFloats(set)
}

// ConstraintSet returns the observation's own constraints, or nothing when it
// declares none.
func (o Observation) ConstraintSet() []Constraints {
	if o.Constraints == nil {
		return nil
	}
	return []Constraints{*o.Constraints}
}

// Validate checks the observation's structural invariants.
func (o Observation) Validate() error {
	if len(o.Targets) == 0 {
		return integrityf(KindObservation, string(o.ID), "no targets")
	}
	names := make(map[string]struct{}, len(o.Targets))
	for _, t := range o.Targets {
		names[t.Details().Name] = struct{}{}
		if nt, ok := t.(NonsiderealTarget); ok {
			if err := nt.Validate(); err != nil {
				return err
			}
		}
	}
	for _, guider := range slices.Sorted(maps.Keys(o.Guiding)) {
		if _, ok := names[o.Guiding[guider]]; !ok {
			return integrityf(KindObservation, string(o.ID), "guider %s uses unknown target %q", guider, o.Guiding[guider])
		}
	}
	seen := make(map[string]struct{}, len(o.Sequence))
	for _, a := range o.Sequence {
		if _, dup := seen[a.ID]; dup {
			return integrityf(KindObservation, string(o.ID), "duplicate atom %s", a.ID)
		}
		seen[a.ID] = struct{}{}
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if o.AcqOverhead < 0 {
		return integrityf(KindObservation, string(o.ID), "negative acquisition overhead")
	}
	return nil
}

// Clone returns a deep copy.
func (o Observation) Clone() Observation {
	if o.Targets != nil {
		targets := make(Targets, len(o.Targets))
		for i, t := range o.Targets {
			targets[i] = cloneTarget(t)
		}
		o.Targets = targets
	}
	o.Guiding = maps.Clone(o.Guiding)
	seq := make([]Atom, len(o.Sequence))
	for i, a := range o.Sequence {
		seq[i] = a.clone()
	}
	if o.Sequence == nil {
		seq = nil
	}
	o.Sequence = seq
	if o.Constraints != nil {
		c := *o.Constraints
		c.TimingWindows = slices.Clone(c.TimingWindows)
		o.Constraints = &c
	}
	if o.TooType != nil {
		t := *o.TooType
		o.TooType = &t
	}
	return o
}

// IsScienceOrProgCal reports whether o is a SCIENCE or PROGCAL observation.
func IsScienceOrProgCal(o Observation) bool {
	return o.Class == ClassScience || o.Class == ClassProgCal
}

// IsNotInactive reports whether o is in any status but INACTIVE.
func IsNotInactive(o Observation) bool { return o.Status != StatusInactive }

func sortedFloats(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
