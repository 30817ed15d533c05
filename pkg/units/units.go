// Package units converts between sexagesimal strings and decimal values and
// between angular units. All functions are pure; malformed text is reported
// as a FormatError and never coerced to zero.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFormat is matched by FormatError through errors.Is.
var ErrFormat = errors.New("malformed sexagesimal value")

// FormatError reports text that could not be parsed.
type FormatError struct {
	Input  string
	Reason string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("malformed value %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrFormat.
func (e FormatError) Is(target error) bool { return target == ErrFormat }

// Options tunes sexagesimal parsing and formatting.
type Options struct {
	// Separator between components. Defaults to ":".
	Separator string
	// Hours marks the sexagesimal value as hours (right ascension): parsing
	// multiplies by 15 to give degrees and formatting divides by 15.
	Hours bool
	// Precision is the number of decimal places of the seconds when formatting.
	Precision int
}

func (o Options) separator() string {
	if o.Separator == "" {
		return ":"
	}
	return o.Separator
}

// SexToDec parses a sexagesimal string of one to three components, for
// example "-12:30:36.5", into a decimal value. A leading sign applies to the
// whole value, as does a negative first component when no leading sign is
// given. At most one sign is accepted.
func SexToDec(s string, opts Options) (float64, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return 0, FormatError{Input: s, Reason: "empty"}
	}
	sign := 1.0
	signed := true
	switch text[0] {
	case '-':
		sign = -1
		text = text[1:]
	case '+':
		text = text[1:]
	default:
		signed = false
	}
	parts := strings.Split(text, opts.separator())
	if len(parts) > 3 {
		return 0, FormatError{Input: s, Reason: "more than three components"}
	}
	var value float64
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if hasSign(part) && (signed || i > 0) {
			return 0, FormatError{Input: s, Reason: fmt.Sprintf("component %d repeats the sign", i+1)}
		}
		x, err := strconv.ParseFloat(part, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, FormatError{Input: s, Reason: fmt.Sprintf("component %d is not a number", i+1)}
		}
		if x < 0 {
			if i > 0 {
				return 0, FormatError{Input: s, Reason: "only the first component may be negative"}
			}
			sign = -sign
			x = -x
		}
		if i > 0 && x >= 60 {
			return 0, FormatError{Input: s, Reason: fmt.Sprintf("component %d out of range", i+1)}
		}
		value += x / math.Pow(60, float64(i))
	}
	if opts.Hours {
		value *= 15
	}
	return sign * value, nil
}

// DecToSex formats a decimal value as sign, whole units, minutes and seconds.
// Seconds are rounded to opts.Precision places with carries propagated, so the
// output never shows 60 seconds or minutes. NaN and infinities have no
// sexagesimal form and come back as "NaN", "+Inf" or "-Inf".
func DecToSex(v float64, opts Options) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if opts.Hours {
		v /= 15
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	prec := max(opts.Precision, 0)
	scale := math.Pow(10, float64(prec))
	ticks := int64(math.Round(v * 3600 * scale))
	perMinute := int64(60 * scale)
	perUnit := 60 * perMinute
	whole := ticks / perUnit
	minutes := (ticks % perUnit) / perMinute
	seconds := float64(ticks%perMinute) / scale
	if ticks == 0 {
		sign = ""
	}
	sep := opts.separator()
	width := 2
	if prec > 0 {
		width = 3 + prec
	}
	return fmt.Sprintf("%s%02d%s%02d%s%0*.*f", sign, whole, sep, minutes, sep, width, prec, seconds)
}

// ParseDMS parses "[+-]dd:mm:ss.s" into decimal degrees. Results of 180 or
// more are wrapped to the equivalent negative angle.
func ParseDMS(s string) (float64, error) {
	text := strings.TrimSpace(s)
	sign := ""
	if text != "" && (text[0] == '+' || text[0] == '-') {
		sign, text = text[:1], text[1:]
	}
	d, m, sec, err := threeParts(s, text)
	if err != nil {
		return 0, err
	}
	return DMSToDeg(d, m, sec, sign)
}

// DMSToDeg converts degrees, minutes and seconds with a sign of "", "+" or "-"
// to decimal degrees, wrapping results of 180 or more to negative angles.
func DMSToDeg(d, m int, s float64, sign string) (float64, error) {
	var f float64
	switch sign {
	case "", "+":
		f = 1
	case "-":
		f = -1
	default:
		return 0, FormatError{Input: fmt.Sprintf("%s%d:%d:%g", sign, d, m, s), Reason: "illegal sign"}
	}
	dec := f * (float64(d) + float64(m)/60 + s/3600)
	if dec >= 180 {
		dec -= 360
	}
	return dec, nil
}

// ParseHMS parses "hh:mm:ss.s" into decimal degrees.
func ParseHMS(s string) (float64, error) {
	h, m, sec, err := threeParts(s, strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return HMSToDeg(h, m, sec), nil
}

// HMSToDeg converts hours, minutes and seconds of time to decimal degrees.
func HMSToDeg(h, m int, s float64) float64 {
	return 15 * (float64(h) + float64(m)/60 + s/3600)
}

// FormatHMS formats decimal degrees as hours, minutes and seconds.
func FormatHMS(deg float64, precision int) string {
	return DecToSex(NormalizeDegrees(deg), Options{Hours: true, Precision: precision})
}

// FormatDMS formats decimal degrees as signed degrees, minutes and seconds.
func FormatDMS(deg float64, precision int) string {
	out := DecToSex(deg, Options{Precision: precision})
	if !hasSign(out) && !math.IsNaN(deg) {
		out = "+" + out
	}
	return out
}

func threeParts(input, text string) (int, int, float64, error) {
	if text == "" {
		return 0, 0, 0, FormatError{Input: input, Reason: "empty"}
	}
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return 0, 0, 0, FormatError{Input: input, Reason: "expected three components"}
	}
	for _, part := range parts {
		if hasSign(part) {
			return 0, 0, 0, FormatError{Input: input, Reason: "components must be unsigned"}
		}
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil || a < 0 {
		return 0, 0, 0, FormatError{Input: input, Reason: "first component is not a whole number"}
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil || b < 0 || b >= 60 {
		return 0, 0, 0, FormatError{Input: input, Reason: "minutes must be a whole number below 60"}
	}
	c, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || math.IsNaN(c) || c < 0 || c >= 60 {
		return 0, 0, 0, FormatError{Input: input, Reason: "seconds must be a number below 60"}
	}
	return a, b, c, nil
}

func hasSign(s string) bool {
	return s != "" && (s[0] == '+' || s[0] == '-')
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeDegrees maps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AngularDistance is the great-circle distance between two points given in
// radians, computed with the haversine formula.
func AngularDistance(ra1, dec1, ra2, dec2 float64) float64 {
	dPhi := dec2 - dec1
	dLambda := ra2 - ra1
	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(dec1)*math.Cos(dec2)*math.Pow(math.Sin(dLambda/2), 2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Lerp returns n values evenly spaced strictly between first and last.
func Lerp(first, last float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	step := (last - first) / float64(n+1)
	for i := range out {
		out[i] = first + step*float64(i+1)
	}
	return out
}

// LerpDegrees interpolates n angles strictly between start and end along the
// shorter arc, with results in [0, 360). Antipodal points are joined along
// the arc of decreasing angle.
func LerpDegrees(start, end float64, n int) []float64 {
	return lerpCircular(start, end, n, 360)
}

// LerpRadians is LerpDegrees for radians.
func LerpRadians(start, end float64, n int) []float64 {
	return lerpCircular(start, end, n, 2*math.Pi)
}

func lerpCircular(first, last float64, n int, period float64) []float64 {
	first = positiveMod(first, period)
	last = positiveMod(last, period)
	clockwise := positiveMod(last-first, period)
	counter := positiveMod(first-last, period)
	distance := -counter
	if clockwise < counter {
		distance = clockwise
	}
	fractions := Lerp(0, 1, n)
	for i, f := range fractions {
		fractions[i] = positiveMod(first+distance*f, period)
	}
	return fractions
}

func positiveMod(v, m float64) float64 {
	v = math.Mod(v, m)
	if v < 0 {
		v += m
	}
	return v
}
