package units

import (
	"errors"
	"math"
	"testing"
)

func TestSexToDec(t *testing.T) {
	cases := []struct {
		in   string
		opts Options
		want float64
	}{
		{"12:30:00", Options{}, 12.5},
		{"-12:30:00", Options{}, -12.5},
		{"+00:30:36", Options{}, 0.51},
		{"-00:30:00", Options{}, -0.5},
		{"01:00:00", Options{Hours: true}, 15},
		{"10 15", Options{Separator: " "}, 10.25},
		{"7", Options{}, 7},
	}
	for _, tc := range cases {
		got, err := SexToDec(tc.in, tc.opts)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestMalformedInputIsFormatError(t *testing.T) {
	for _, in := range []string{"", "aa:bb:cc", "10:-5:00", "10:75:00", "1:2:3:4", "--5:30", "+-5:30", "-+5:30", "10:+5:00", "10:00:NaN"} {
		_, err := SexToDec(in, Options{})
		var fe FormatError
		if !errors.As(err, &fe) || !errors.Is(err, ErrFormat) {
			t.Fatalf("%q: expected FormatError, got %v", in, err)
		}
	}
	for _, in := range []string{"", "12:30", "12:xx:00", "12:30:61", "12:00:NaN", "12:00:nan", "12:00:Inf", "12:00:+Inf", "++10:00:00", "+-10:00:00", "10:+5:00", "10:05:+1"} {
		if _, err := ParseHMS(in); !errors.Is(err, ErrFormat) {
			t.Fatalf("ParseHMS(%q): expected FormatError, got %v", in, err)
		}
		if _, err := ParseDMS(in); !errors.Is(err, ErrFormat) {
			t.Fatalf("ParseDMS(%q): expected FormatError, got %v", in, err)
		}
	}
	if _, err := DMSToDeg(1, 2, 3, "*"); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected illegal sign to fail, got %v", err)
	}
}

func TestNonFiniteValuesFormatAsText(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tc := range cases {
		if got := DecToSex(tc.in, Options{Precision: 2}); got != tc.want {
			t.Fatalf("DecToSex(%v): expected %q, got %q", tc.in, tc.want, got)
		}
		if got := DecToSex(tc.in, Options{Hours: true}); got != tc.want {
			t.Fatalf("DecToSex(%v) in hours: expected %q, got %q", tc.in, tc.want, got)
		}
		if got := FormatDMS(tc.in, 1); got != tc.want {
			t.Fatalf("FormatDMS(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
	if got := FormatHMS(math.NaN(), 1); got != "NaN" {
		t.Fatalf("FormatHMS(NaN): expected NaN, got %q", got)
	}
}

func TestParseDMSWrapsLargeAngles(t *testing.T) {
	got, err := ParseDMS("270:00:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != -90 {
		t.Fatalf("expected -90, got %v", got)
	}
	got, err = ParseDMS("-41:16:07.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if math.Abs(got+41.26875) > 1e-9 {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	const precision = 3
	// Half a unit in the last place of the seconds, in degrees.
	decTolerance := 0.5e-3 / 3600
	raTolerance := 15 * decTolerance
	for _, c := range []struct{ ra, dec float64 }{
		{10.6847083, 41.26875},
		{279.2347348, 38.7836889},
		{83.8220833, -5.3911111},
		{0.0001, -89.9999},
		{359.99, 0.25},
		{201.365063, -43.019113},
	} {
		raText := FormatHMS(c.ra, precision)
		ra, err := ParseHMS(raText)
		if err != nil {
			t.Fatalf("parse %q: %v", raText, err)
		}
		if math.Abs(ra-c.ra) > raTolerance+1e-12 {
			t.Fatalf("ra %v -> %q -> %v exceeds tolerance", c.ra, raText, ra)
		}
		decText := FormatDMS(c.dec, precision)
		dec, err := ParseDMS(decText)
		if err != nil {
			t.Fatalf("parse %q: %v", decText, err)
		}
		if math.Abs(dec-c.dec) > decTolerance+1e-12 {
			t.Fatalf("dec %v -> %q -> %v exceeds tolerance", c.dec, decText, dec)
		}
	}
}

func TestDecToSexCarries(t *testing.T) {
	if got := DecToSex(12.99999999, Options{Precision: 2}); got != "13:00:00.00" {
		t.Fatalf("expected carry into whole units, got %q", got)
	}
	if got := DecToSex(-0.5, Options{}); got != "-00:30:00" {
		t.Fatalf("unexpected negative formatting %q", got)
	}
	if got := FormatHMS(-15, 0); got != "23:00:00" {
		t.Fatalf("expected normalised right ascension, got %q", got)
	}
}

func TestAngles(t *testing.T) {
	if math.Abs(DegToRad(180)-math.Pi) > 1e-12 || math.Abs(RadToDeg(math.Pi/2)-90) > 1e-12 {
		t.Fatalf("unexpected conversions")
	}
	d := AngularDistance(0, 0, DegToRad(90), 0)
	if math.Abs(d-math.Pi/2) > 1e-12 {
		t.Fatalf("expected quarter circle, got %v", d)
	}
	if got := AngularDistance(1, 0.5, 1, 0.5); got != 0 {
		t.Fatalf("expected zero distance, got %v", got)
	}
}

func TestLerp(t *testing.T) {
	got := Lerp(0, 10, 4)
	want := []float64{2, 4, 6, 8}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if Lerp(0, 1, 0) != nil {
		t.Fatalf("expected no points")
	}
	wrap := LerpDegrees(350, 10, 1)
	if len(wrap) != 1 || math.Abs(wrap[0]) > 1e-9 && math.Abs(wrap[0]-360) > 1e-9 {
		t.Fatalf("expected interpolation through 0, got %v", wrap)
	}
	back := LerpDegrees(10, 350, 1)
	if math.Abs(back[0]) > 1e-9 && math.Abs(back[0]-360) > 1e-9 {
		t.Fatalf("expected interpolation through 0, got %v", back)
	}
	rad := LerpRadians(0, math.Pi/2, 1)
	if math.Abs(rad[0]-math.Pi/4) > 1e-12 {
		t.Fatalf("unexpected radian interpolation %v", rad)
	}
}
