// Package sky computes where targets sit in a site's sky: sidereal time,
// hour angle, altitude and airmass, and whether an observation's elevation
// and timing constraints hold at a given instant.
package sky

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"obscore/pkg/domain"
	"obscore/pkg/units"
)

// J2000 is the Julian date of 2000-01-01T12:00:00.
const J2000 = 2451545.0

// omegaEarth is the Earth's sidereal rotation rate in rad/s.
const omegaEarth = 7.292115146706979e-5

const daysPerJulianYear = 365.25

// JulianDate converts t to a Julian date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	jd := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	return jd + float64(t.Nanosecond())/1e9/86400
}

// GMST is Greenwich mean sidereal time at t in radians, in [0, 2π).
func GMST(t time.Time) float64 {
	t = t.UTC()
	g := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	g += omegaEarth * float64(t.Nanosecond()) / 1e9
	return normalizeRadians(g)
}

// LocalSiderealTime is the sidereal time at east longitude lonDeg, in radians.
func LocalSiderealTime(t time.Time, lonDeg float64) float64 {
	return normalizeRadians(GMST(t) + units.DegToRad(lonDeg))
}

// HourAngle of a right ascension raDeg at east longitude lonDeg, in radians
// within [-π, π). Negative values are east of the meridian.
func HourAngle(t time.Time, lonDeg, raDeg float64) float64 {
	ha := normalizeRadians(LocalSiderealTime(t, lonDeg)-units.DegToRad(raDeg)) + math.Pi
	return normalizeRadians(ha) - math.Pi
}

// Altitude above the horizon, in radians, of a source at declination dec and
// hour angle ha seen from latitude lat. All angles are radians.
func Altitude(lat, ha, dec float64) float64 {
	s := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha)
	return math.Asin(clamp(s))
}

// MinMaxAltitude returns the lowest and highest altitudes, in radians, a
// source at declination dec reaches from latitude lat.
func MinMaxAltitude(lat, dec float64) (float64, float64) {
	var minAlt, maxAlt float64
	if x := math.Cos(dec)*math.Cos(lat) + math.Sin(dec)*math.Sin(lat); math.Abs(x) <= 1 {
		maxAlt = math.Asin(x)
	}
	if x := math.Sin(dec)*math.Sin(lat) - math.Cos(dec)*math.Cos(lat); math.Abs(x) <= 1 {
		minAlt = math.Asin(x)
	}
	return minAlt, maxAlt
}

// Crossing describes whether a source ever passes through an altitude.
type Crossing int

// Crossing outcomes.
const (
	Crosses Crossing = iota
	AlwaysAbove
	AlwaysBelow
)

// HourAngleAtAltitude returns the hour angle, in radians, at which a source
// at declination dec reaches altitude alt from latitude lat. The hour angle is
// only meaningful when the result is Crosses.
func HourAngleAtAltitude(dec, lat, alt float64) (float64, Crossing) {
	minAlt, maxAlt := MinMaxAltitude(lat, dec)
	switch {
	case alt < minAlt:
		return 0, AlwaysAbove
	case alt > maxAlt:
		return 0, AlwaysBelow
	}
	codec := math.Pi/2 - dec
	colat := math.Pi/2 - lat
	zdist := math.Pi/2 - alt
	x := (math.Cos(zdist) - math.Cos(codec)*math.Cos(colat)) / (math.Sin(codec) * math.Sin(colat))
	return math.Acos(clamp(x)), Crosses
}

// BelowHorizonAirmass is reported for sources at or below the horizon.
const BelowHorizonAirmass = 500.0

var airmassCoefficients = [...]float64{-4.716679e-5, 1.351167e-3, 3.033104e-3, 2.879465e-3, 0}

// TrueAirmass converts an altitude in radians to airmass using the Kitt Peak
// polynomial fit of Snell and Heiser (1968). Beyond sec z of 12 the plain
// secant is returned.
func TrueAirmass(alt float64) float64 {
	if alt <= 0 {
		return BelowHorizonAirmass
	}
	secz := 1 / math.Sin(alt)
	if secz >= 12 {
		return secz
	}
	x := secz - 1
	var poly float64
	for _, c := range airmassCoefficients {
		poly = poly*x + c
	}
	return secz - poly
}

// DecimalYear expresses t as a Julian epoch, for example 2000.0 at J2000.
func DecimalYear(t time.Time) float64 {
	return 2000 + (JulianDate(t)-J2000)/daysPerJulianYear
}

// ProperMotion moves a sidereal target from its epoch to t and returns the
// position in decimal degrees. A zero epoch is taken as J2000.
func ProperMotion(target domain.SiderealTarget, t time.Time) (ra, dec float64) {
	epoch := target.Epoch
	if epoch == 0 {
		epoch = 2000
	}
	years := DecimalYear(t) - epoch
	const masPerDegree = 3.6e6
	dec = target.Dec + target.PMDec*years/masPerDegree
	cosDec := math.Cos(units.DegToRad(target.Dec))
	if math.Abs(cosDec) > 1e-12 {
		ra = target.RA + target.PMRA*years/masPerDegree/cosDec
	} else {
		ra = target.RA
	}
	return units.NormalizeDegrees(ra), dec
}

// Position returns a target's coordinates in decimal degrees at t. For a
// nonsidereal target, sample selects the ephemeris entry to use.
func Position(target domain.Target, t time.Time, sample int) (ra, dec float64, err error) {
	switch v := target.(type) {
	case domain.SiderealTarget:
		ra, dec = ProperMotion(v, t)
		return ra, dec, nil
	case domain.NonsiderealTarget:
		return v.Sample(sample)
	default:
		return 0, 0, domain.NotFoundError{Kind: domain.KindTarget, ID: target.Details().Name}
	}
}

func normalizeRadians(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
