package domain

import (
	"slices"
	"time"
)

// QAState is the quality assessment of executed data. Lower values take
// precedence when several states must be collapsed into one.
type QAState int

// QA states in precedence order.
const (
	QANone QAState = iota
	QAUndefined
	QAFail
	QAUsable
	QAPass
	QACheck
)

var qaStateNames = []string{"NONE", "UNDEFINED", "FAIL", "USABLE", "PASS", "CHECK"}

func (q QAState) String() string { return ordinalName(qaStateNames, q) }

// MarshalText encodes the state by name.
func (q QAState) MarshalText() ([]byte, error) { return marshalOrdinal("qa state", qaStateNames, q) }

// UnmarshalText decodes a state name; obs log entries are matched case-insensitively.
func (q *QAState) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[QAState]("qa state", qaStateNames, string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// SelectQAState collapses several states into the one with highest precedence.
// It returns false for an empty input.
func SelectQAState(states []QAState) (QAState, bool) {
	if len(states) == 0 {
		return 0, false
	}
	return slices.Min(states), true
}

// Atom is the smallest schedulable set of steps that yields useful science.
// Wavelengths are microns.
type Atom struct {
	ID          string        `json:"id"`
	ExecTime    time.Duration `json:"exec_time"`
	ProgTime    time.Duration `json:"prog_time"`
	PartTime    time.Duration `json:"part_time"`
	Observed    bool          `json:"observed"`
	QAState     QAState       `json:"qa_state"`
	GuideState  bool          `json:"guide_state"`
	Resources   []Resource    `json:"resources,omitempty"`
	Wavelengths []float64     `json:"wavelengths,omitempty"`
}

// Validate checks the time split and the resource identifiers.
func (a Atom) Validate() error {
	if err := a.checkTimes(); err != nil {
		return err
	}
	for _, r := range a.Resources {
		if err := validateResourceID(r.ID); err != nil {
			return integrityf(KindAtom, a.ID, "resource %q rejected", r.ID)
		}
	}
	return nil
}

// checkTimes verifies that the program and partner split adds up to the
// execution time.
func (a Atom) checkTimes() error {
	if a.ExecTime < 0 || a.ProgTime < 0 || a.PartTime < 0 {
		return integrityf(KindAtom, a.ID, "negative time")
	}
	if a.ProgTime+a.PartTime != a.ExecTime {
		return integrityf(KindAtom, a.ID, "prog_time %s + part_time %s != exec_time %s", a.ProgTime, a.PartTime, a.ExecTime)
	}
	return nil
}

func (a Atom) clone() Atom {
	a.Resources = slices.Clone(a.Resources)
	a.Wavelengths = slices.Clone(a.Wavelengths)
	return a
}
