package domain

import (
	"sort"
	"time"
)

// Timing window sentinels carried over from the observing tool conventions.
const (
	// InfiniteDuration stands in for an open-ended window: the length of a large program.
	InfiniteDuration = time.Duration(3*365*24+24) * time.Hour
	// ForeverRepeating marks a window that repeats without bound.
	ForeverRepeating = -1
	// NonRepeating marks a single window.
	NonRepeating = 0
	// OCSInfiniteRepeats is the repeat count substituted for ForeverRepeating.
	OCSInfiniteRepeats = 1000
)

// TimingWindow is a period during which an observation may be executed,
// optionally repeated Repeat times every Period.
type TimingWindow struct {
	Start    time.Time      `json:"start"`
	Duration time.Duration  `json:"duration"`
	Repeat   int            `json:"repeat"`
	Period   *time.Duration `json:"period,omitempty"`
}

// Interval is a closed-open span of time [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Intervals expands the window and its repeats into concrete intervals that
// start no later than until.
func (w TimingWindow) Intervals(until time.Time) []Interval {
	repeats := w.Repeat
	if repeats == ForeverRepeating {
		repeats = OCSInfiniteRepeats
	}
	if w.Period == nil || *w.Period <= 0 || repeats < 0 {
		repeats = NonRepeating
	}
	out := make([]Interval, 0, 1)
	for i := 0; i <= repeats; i++ {
		start := w.Start
		if i > 0 {
			start = w.Start.Add(time.Duration(i) * *w.Period)
		}
		if start.After(until) {
			break
		}
		out = append(out, Interval{Start: start, End: start.Add(w.Duration)})
	}
	return out
}

// Contains reports whether t falls inside the window or one of its repeats.
func (w TimingWindow) Contains(t time.Time) bool {
	for _, iv := range w.Intervals(t) {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

func (w TimingWindow) equal(o TimingWindow) bool {
	if !w.Start.Equal(o.Start) || w.Duration != o.Duration || w.Repeat != o.Repeat {
		return false
	}
	switch {
	case w.Period == nil && o.Period == nil:
		return true
	case w.Period == nil || o.Period == nil:
		return false
	default:
		return *w.Period == *o.Period
	}
}

// unionTimingWindows merges window lists, dropping duplicates and ordering by start.
func unionTimingWindows(lists ...[]TimingWindow) []TimingWindow {
	var out []TimingWindow
	for _, list := range lists {
	next:
		for _, w := range list {
			for _, seen := range out {
				if seen.equal(w) {
					continue next
				}
			}
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
