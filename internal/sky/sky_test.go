package sky

import (
	"errors"
	"math"
	"testing"
	"time"

	"obscore/pkg/domain"
	"obscore/pkg/units"
)

var j2000Time = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

func TestJulianDateAndGMSTAtJ2000(t *testing.T) {
	if jd := JulianDate(j2000Time); math.Abs(jd-J2000) > 1e-9 {
		t.Fatalf("expected %v, got %v", J2000, jd)
	}
	want := units.DegToRad(280.46061837)
	if g := GMST(j2000Time); math.Abs(g-want) > 1e-6 {
		t.Fatalf("expected GMST %v, got %v", want, g)
	}
	half := j2000Time.Add(500 * time.Millisecond)
	if d := GMST(half) - GMST(j2000Time); math.Abs(d-omegaEarth/2) > 1e-9 {
		t.Fatalf("fractional seconds not applied: %v", d)
	}
}

func TestAltitudeAndAirmass(t *testing.T) {
	lat := units.DegToRad(-30)
	if alt := Altitude(lat, 0, lat); math.Abs(alt-math.Pi/2) > 1e-9 {
		t.Fatalf("expected zenith, got %v", alt)
	}
	if am := TrueAirmass(math.Pi / 2); math.Abs(am-1) > 1e-12 {
		t.Fatalf("expected airmass 1 at zenith, got %v", am)
	}
	if am := TrueAirmass(units.DegToRad(30)); am < 1.99 || am >= 2 {
		t.Fatalf("expected slightly under sec z at 30 degrees, got %v", am)
	}
	if am := TrueAirmass(units.DegToRad(-5)); am != BelowHorizonAirmass {
		t.Fatalf("expected below-horizon airmass, got %v", am)
	}
	if am := TrueAirmass(units.DegToRad(3)); math.Abs(am-1/math.Sin(units.DegToRad(3))) > 1e-12 {
		t.Fatalf("expected plain secant near the horizon, got %v", am)
	}
}

func TestHourAngleAtAltitude(t *testing.T) {
	lat := units.DegToRad(19.8)
	dec := units.DegToRad(10)
	ha, crossing := HourAngleAtAltitude(dec, lat, 0)
	if crossing != Crosses {
		t.Fatalf("expected crossing, got %v", crossing)
	}
	if alt := Altitude(lat, ha, dec); math.Abs(alt) > 1e-9 {
		t.Fatalf("expected horizon at returned hour angle, got %v", alt)
	}
	if _, c := HourAngleAtAltitude(units.DegToRad(89), lat, 0); c != AlwaysAbove {
		t.Fatalf("expected circumpolar source, got %v", c)
	}
	if _, c := HourAngleAtAltitude(units.DegToRad(-80), lat, 0); c != AlwaysBelow {
		t.Fatalf("expected source that never rises, got %v", c)
	}
}

func TestProperMotion(t *testing.T) {
	target := domain.SiderealTarget{RA: 10, Dec: 0, PMDec: 3.6e6, PMRA: 3.6e6, Epoch: 2000}
	ra, dec := ProperMotion(target, j2000Time.Add(time.Duration(daysPerJulianYear*24)*time.Hour))
	if math.Abs(dec-1) > 1e-9 || math.Abs(ra-11) > 1e-9 {
		t.Fatalf("expected one degree of motion, got %v %v", ra, dec)
	}
}

func TestPositionOfNonsiderealTarget(t *testing.T) {
	target := domain.NonsiderealTarget{TargetDetails: domain.TargetDetails{Name: "Ceres"}, RA: []float64{1, 2}, Dec: []float64{3, 4}}
	ra, dec, err := Position(target, j2000Time, 1)
	if err != nil || ra != 2 || dec != 4 {
		t.Fatalf("unexpected position %v %v %v", ra, dec, err)
	}
	if _, _, err := Position(target, j2000Time, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing sample to be not found, got %v", err)
	}
}

func overhead(t *testing.T, o Observer, at time.Time) domain.SiderealTarget {
	t.Helper()
	ra := units.RadToDeg(LocalSiderealTime(at, units.RadToDeg(o.Lon)))
	dec := units.RadToDeg(o.Lat) - 20
	return domain.SiderealTarget{TargetDetails: domain.TargetDetails{Name: "transit", Type: domain.TargetBase}, RA: ra, Dec: dec, Epoch: DecimalYear(at)}
}

func TestObserverObservable(t *testing.T) {
	o, err := NewObserver(domain.SiteGN)
	if err != nil {
		t.Fatalf("observer: %v", err)
	}
	at := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	obs := domain.Observation{ID: "o1", Site: domain.SiteGN, Targets: domain.Targets{overhead(t, o, at)}}

	ok, err := o.Observable(obs, at)
	if err != nil || !ok {
		t.Fatalf("expected transiting target to be observable, got %v %v", ok, err)
	}

	obs.Constraints = &domain.Constraints{ElevationType: domain.ElevationHourAngle, ElevationMin: -1, ElevationMax: 1}
	if ok, _ := o.Observable(obs, at); !ok {
		t.Fatalf("expected hour angle near zero to satisfy +/-1h")
	}
	if ok, _ := o.Observable(obs, at.Add(3*time.Hour)); ok {
		t.Fatalf("expected hour angle of 3h to violate +/-1h")
	}

	obs.Constraints.TimingWindows = []domain.TimingWindow{{Start: at.Add(time.Hour), Duration: time.Hour}}
	if ok, _ := o.Observable(obs, at); ok {
		t.Fatalf("expected timing window to exclude the instant")
	}

	obs.Site = domain.SiteGS
	if _, err := o.Observable(obs, at); err == nil {
		t.Fatalf("expected site mismatch to fail")
	}
}
