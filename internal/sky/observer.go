package sky

import (
	"fmt"
	"math"
	"time"

	"obscore/pkg/domain"
	"obscore/pkg/units"
)

// Observer is a site's position with angles in radians.
type Observer struct {
	Site domain.Site
	Lat  float64
	Lon  float64
	Alt  float64
}

// NewObserver looks up the geodetic data of site.
func NewObserver(site domain.Site) (Observer, error) {
	info, err := site.Info()
	if err != nil {
		return Observer{}, err
	}
	return Observer{
		Site: site,
		Lat:  units.DegToRad(info.Latitude),
		Lon:  units.DegToRad(info.Longitude),
		Alt:  info.Altitude,
	}, nil
}

// Apparent is the apparent position of a target at an instant.
type Apparent struct {
	At        time.Time
	HourAngle float64 // radians
	Altitude  float64 // radians
	Airmass   float64
}

// HourAngleHours is the hour angle in hours.
func (s Apparent) HourAngleHours() float64 { return s.HourAngle * 12 / math.Pi }

// Locate computes the apparent position of ra and dec, in decimal degrees.
func (o Observer) Locate(t time.Time, ra, dec float64) Apparent {
	ha := HourAngle(t, units.RadToDeg(o.Lon), ra)
	alt := Altitude(o.Lat, ha, units.DegToRad(dec))
	return Apparent{At: t, HourAngle: ha, Altitude: alt, Airmass: TrueAirmass(alt)}
}

// LocateTarget is Locate for a target, applying proper motion for sidereal
// targets and the given ephemeris sample for nonsidereal ones.
func (o Observer) LocateTarget(target domain.Target, t time.Time, sample int) (Apparent, error) {
	ra, dec, err := Position(target, t, sample)
	if err != nil {
		return Apparent{}, err
	}
	return o.Locate(t, ra, dec), nil
}

// ElevationSatisfied reports whether s meets the elevation bounds of c. Nil
// constraints use the default airmass range.
func ElevationSatisfied(c *domain.Constraints, s Apparent) bool {
	if s.Altitude <= 0 {
		return false
	}
	kind, lo, hi := domain.EffectiveElevationBounds(c)
	switch kind {
	case domain.ElevationHourAngle:
		ha := s.HourAngleHours()
		return ha >= lo && ha <= hi
	default:
		return s.Airmass >= lo && s.Airmass <= hi
	}
}

// TimingSatisfied reports whether t lies in one of the timing windows of c.
// Constraints without windows never restrict timing.
func TimingSatisfied(c *domain.Constraints, t time.Time) bool {
	if c == nil || len(c.TimingWindows) == 0 {
		return true
	}
	for _, w := range c.TimingWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Observable reports whether the observation's base target satisfies its
// elevation and timing constraints from o at t.
func (o Observer) Observable(obs domain.Observation, t time.Time) (bool, error) {
	if obs.Site != "" && obs.Site != o.Site {
		return false, fmt.Errorf("observation %s is for site %s, observer is at %s", obs.ID, obs.Site, o.Site)
	}
	base, err := obs.BaseTarget()
	if err != nil {
		return false, err
	}
	s, err := o.LocateTarget(base, t, 0)
	if err != nil {
		return false, err
	}
	return ElevationSatisfied(obs.Constraints, s) && TimingSatisfied(obs.Constraints, t), nil
}
