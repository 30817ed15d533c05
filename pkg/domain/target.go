package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// TargetType is the role a target plays in an observation.
type TargetType string

// Target roles.
const (
	TargetBase        TargetType = "BASE"
	TargetUser        TargetType = "USER"
	TargetBlindOffset TargetType = "BLIND_OFFSET"
	TargetOffAxis     TargetType = "OFF_AXIS"
	TargetTuningStar  TargetType = "TUNING_STAR"
	TargetGuideStar   TargetType = "GUIDESTAR"
	TargetOther       TargetType = "OTHER"
)

var targetTypes = []TargetType{
	TargetBase, TargetUser, TargetBlindOffset, TargetOffAxis, TargetTuningStar, TargetGuideStar, TargetOther,
}

// UnmarshalText validates the target type name. Empty text leaves the type unset.
func (t *TargetType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	v, err := parseLabel("target type", targetTypes, string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TargetTag classifies a nonsidereal target.
type TargetTag string

// Nonsidereal target tags.
const (
	TagComet     TargetTag = "COMET"
	TagAsteroid  TargetTag = "ASTEROID"
	TagMajorBody TargetTag = "MAJOR_BODY"
)

// UnmarshalText validates the tag name. Empty text leaves the tag unset.
func (t *TargetTag) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	v, err := parseLabel("target tag", []TargetTag{TagComet, TagAsteroid, TagMajorBody}, string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// GuideSpeed is how quickly a guider can lock on a guide star.
type GuideSpeed int

// Guide speeds, slowest first.
const (
	GuideSlow GuideSpeed = iota
	GuideMedium
	GuideFast
)

var guideSpeedNames = []string{"SLOW", "MEDIUM", "FAST"}

func (g GuideSpeed) String() string { return ordinalName(guideSpeedNames, g) }

// MarshalText encodes the speed by name.
func (g GuideSpeed) MarshalText() ([]byte, error) {
	return marshalOrdinal("guide speed", guideSpeedNames, g)
}

// UnmarshalText decodes a speed name.
func (g *GuideSpeed) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[GuideSpeed]("guide speed", guideSpeedNames, string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Target is implemented by SiderealTarget and NonsiderealTarget only.
type Target interface {
	Details() TargetDetails
	isTarget()
}

// TargetDetails holds the fields shared by every target.
type TargetDetails struct {
	Name       string      `json:"name"`
	Magnitudes []Magnitude `json:"magnitudes,omitempty"`
	Type       TargetType  `json:"type"`
}

// Details returns the shared target fields.
func (d TargetDetails) Details() TargetDetails { return d }

// SiderealTarget is fixed on the celestial sphere up to proper motion.
// RA and Dec are decimal degrees, proper motion is milliarcseconds per year
// and Epoch is a decimal year.
type SiderealTarget struct {
	TargetDetails
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	PMRA  float64 `json:"pm_ra"`
	PMDec float64 `json:"pm_dec"`
	Epoch float64 `json:"epoch"`
}

func (SiderealTarget) isTarget() {}

// NonsiderealTarget moves relative to the stars. Its position is given by
// ephemeris samples in parallel RA and Dec slices, in decimal degrees.
type NonsiderealTarget struct {
	TargetDetails
	Des string    `json:"des"`
	Tag TargetTag `json:"tag"`
	RA  []float64 `json:"ra"`
	Dec []float64 `json:"dec"`
}

func (NonsiderealTarget) isTarget() {}

func cloneTarget(t Target) Target {
	switch t := t.(type) {
	case SiderealTarget:
		t.Magnitudes = slices.Clone(t.Magnitudes)
		return t
	case NonsiderealTarget:
		t.Magnitudes = slices.Clone(t.Magnitudes)
		t.RA = slices.Clone(t.RA)
		t.Dec = slices.Clone(t.Dec)
		return t
	}
	return t
}

// Sample returns the i-th ephemeris position.
func (t NonsiderealTarget) Sample(i int) (ra, dec float64, err error) {
	if i < 0 || i >= len(t.RA) || i >= len(t.Dec) {
		return 0, 0, NotFoundError{Kind: "ephemeris sample", ID: t.Name + "#" + strconv.Itoa(i)}
	}
	return t.RA[i], t.Dec[i], nil
}

// Validate checks that the ephemeris arrays line up.
func (t NonsiderealTarget) Validate() error {
	if len(t.RA) != len(t.Dec) {
		return integrityf(KindTarget, t.Name, "ephemeris has %d ra and %d dec samples", len(t.RA), len(t.Dec))
	}
	return nil
}

const (
	targetKindSidereal    = "sidereal"
	targetKindNonsidereal = "nonsidereal"
)

// Targets is an ordered target list whose first element is the base target.
type Targets []Target

// Names returns the target names in order.
func (ts Targets) Names() []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Details().Name
	}
	return names
}

// MarshalJSON writes each target with a "kind" discriminator.
func (ts Targets) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ts))
	for _, t := range ts {
		var (
			kind string
			body []byte
			err  error
		)
		switch v := t.(type) {
		case SiderealTarget:
			kind = targetKindSidereal
			body, err = json.Marshal(struct {
				Kind string `json:"kind"`
				SiderealTarget
			}{kind, v})
		case NonsiderealTarget:
			kind = targetKindNonsidereal
			body, err = json.Marshal(struct {
				Kind string `json:"kind"`
				NonsiderealTarget
			}{kind, v})
		default:
			return nil, fmt.Errorf("unsupported target type %T", t)
		}
		if err != nil {
			return nil, fmt.Errorf("marshal %s target: %w", kind, err)
		}
		out = append(out, body)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads targets written by MarshalJSON.
func (ts *Targets) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Targets, 0, len(raw))
	for i, msg := range raw {
		var head struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		switch head.Kind {
		case targetKindSidereal:
			var t SiderealTarget
			if err := json.Unmarshal(msg, &t); err != nil {
				return fmt.Errorf("target %d: %w", i, err)
			}
			out = append(out, t)
		case targetKindNonsidereal:
			var t NonsiderealTarget
			if err := json.Unmarshal(msg, &t); err != nil {
				return fmt.Errorf("target %d: %w", i, err)
			}
			out = append(out, t)
		default:
			return fmt.Errorf("target %d: unknown kind %q", i, head.Kind)
		}
	}
	*ts = out
	return nil
}
