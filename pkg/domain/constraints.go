package domain

// Strehl is the required Strehl ratio bin, from 0 (worst) to 1 (ideal).
type Strehl int

// Strehl bins in increasing optical quality.
const (
	S00 Strehl = iota
	S02
	S04
	S06
	S08
	S10
)

var (
	strehlNames  = []string{"S00", "S02", "S04", "S06", "S08", "S10"}
	strehlValues = []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0}
)

// Value returns the Strehl ratio of the bin.
func (s Strehl) Value() float64 { return strehlValues[s] }

func (s Strehl) String() string { return ordinalName(strehlNames, s) }

// MarshalText encodes the bin by name.
func (s Strehl) MarshalText() ([]byte, error) { return marshalOrdinal("strehl", strehlNames, s) }

// UnmarshalText decodes a bin name such as "S06".
func (s *Strehl) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[Strehl]("strehl", strehlNames, string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ElevationType identifies how elevation bounds are expressed.
type ElevationType string

// Elevation constraint kinds.
const (
	ElevationNone      ElevationType = "NONE"
	ElevationHourAngle ElevationType = "HOUR_ANGLE"
	ElevationAirmass   ElevationType = "AIRMASS"
)

// UnmarshalText validates the elevation type name. Empty text means NONE.
func (e *ElevationType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*e = ElevationNone
		return nil
	}
	v, err := parseLabel("elevation type", []ElevationType{ElevationNone, ElevationHourAngle, ElevationAirmass}, string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Airmass bounds applied when an observation has no constraints or its
// elevation type is NONE.
const (
	DefaultAirmassElevationMin = 1.0
	DefaultAirmassElevationMax = 2.3
)

// Constraints are the requirements that must hold for an observation to run.
type Constraints struct {
	Conditions    Conditions     `json:"conditions"`
	ElevationType ElevationType  `json:"elevation_type"`
	ElevationMin  float64        `json:"elevation_min"`
	ElevationMax  float64        `json:"elevation_max"`
	TimingWindows []TimingWindow `json:"timing_windows,omitempty"`
	Strehl        *Strehl        `json:"strehl,omitempty"`
}

// ElevationBounds returns the effective elevation constraint, substituting the
// default airmass range when the type is NONE.
func (c Constraints) ElevationBounds() (ElevationType, float64, float64) {
	if c.ElevationType == ElevationNone || c.ElevationType == "" {
		return ElevationAirmass, DefaultAirmassElevationMin, DefaultAirmassElevationMax
	}
	return c.ElevationType, c.ElevationMin, c.ElevationMax
}

// EffectiveElevationBounds is ElevationBounds that also accepts absent constraints.
func EffectiveElevationBounds(c *Constraints) (ElevationType, float64, float64) {
	if c == nil {
		return ElevationAirmass, DefaultAirmassElevationMin, DefaultAirmassElevationMax
	}
	return c.ElevationBounds()
}

// AggregateConstraints combines the constraints of several observations into
// the set a group must honour: the most restrictive conditions, the tightest
// elevation range, the highest Strehl requirement and the union of all timing
// windows. Elevation bounds are only comparable within one elevation type; the
// first explicit type in input order wins and bounds of other types are
// ignored. It returns false when cs is empty.
func AggregateConstraints(cs []Constraints) (Constraints, bool) {
	if len(cs) == 0 {
		return Constraints{}, false
	}
	conditions := make([]Conditions, 0, len(cs))
	windows := make([][]TimingWindow, 0, len(cs))
	out := Constraints{ElevationType: ElevationNone}
	for _, c := range cs {
		conditions = append(conditions, c.Conditions)
		windows = append(windows, c.TimingWindows)
		if c.Strehl != nil && (out.Strehl == nil || *c.Strehl > *out.Strehl) {
			s := *c.Strehl
			out.Strehl = &s
		}
		if c.ElevationType == ElevationNone || c.ElevationType == "" {
			continue
		}
		switch out.ElevationType {
		case ElevationNone:
			out.ElevationType = c.ElevationType
			out.ElevationMin = c.ElevationMin
			out.ElevationMax = c.ElevationMax
		case c.ElevationType:
			out.ElevationMin = max(out.ElevationMin, c.ElevationMin)
			out.ElevationMax = min(out.ElevationMax, c.ElevationMax)
		}
	}
	if out.ElevationType == ElevationNone {
		out.ElevationMin = DefaultAirmassElevationMin
		out.ElevationMax = DefaultAirmassElevationMax
	}
	out.Conditions = MostRestrictive(conditions...)
	out.TimingWindows = unionTimingWindows(windows...)
	return out, true
}
