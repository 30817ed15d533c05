package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SemesterHalf is one of the two scheduling periods of a year.
type SemesterHalf string

// Semester halves: A runs February to July, B runs August to January.
const (
	HalfA SemesterHalf = "A"
	HalfB SemesterHalf = "B"
)

// Semester is a period for which programs may be submitted.
type Semester struct {
	Year int          `json:"year"`
	Half SemesterHalf `json:"half"`
}

// ParseSemester parses the compact form, for example "2024B".
func ParseSemester(s string) (Semester, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 {
		return Semester{}, fmt.Errorf("invalid semester %q", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Semester{}, fmt.Errorf("invalid semester year %q: %w", s, err)
	}
	half := SemesterHalf(strings.ToUpper(s[4:]))
	if half != HalfA && half != HalfB {
		return Semester{}, fmt.Errorf("invalid semester half %q", s)
	}
	return Semester{Year: year, Half: half}, nil
}

// Start is the first day of the semester (UTC).
func (s Semester) Start() time.Time {
	month := time.February
	if s.Half == HalfB {
		month = time.August
	}
	return time.Date(s.Year, month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the semester (UTC). A B semester ends on 31 January
// of the following year.
func (s Semester) End() time.Time {
	if s.Half == HalfB {
		return time.Date(s.Year+1, time.January, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(s.Year, time.July, 31, 0, 0, 0, 0, time.UTC)
}

// Before orders semesters chronologically.
func (s Semester) Before(o Semester) bool {
	if s.Year != o.Year {
		return s.Year < o.Year
	}
	return s.Half == HalfA && o.Half == HalfB
}

func (s Semester) String() string { return fmt.Sprintf("%d%s", s.Year, s.Half) }
