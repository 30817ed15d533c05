package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// Progress records, per AND group, the index of the last executed child. It
// is kept apart from the group tree so the tree can be shared between readers
// while the scheduler advances progress. The zero value is empty and usable;
// every With method returns a new Progress and leaves the receiver untouched.
type Progress struct {
	previous map[GroupID]int
}

// Previous returns the last executed child index of the group, or false when
// no child has been executed yet.
func (p Progress) Previous(id GroupID) (int, bool) {
	idx, ok := p.previous[id]
	return idx, ok
}

// WithPrevious returns a copy with the group's previous index set.
func (p Progress) WithPrevious(id GroupID, idx int) Progress {
	next := make(map[GroupID]int, len(p.previous)+1)
	maps.Copy(next, p.previous)
	next[id] = idx
	return Progress{previous: next}
}

// WithoutPrevious returns a copy with the group's previous index cleared.
func (p Progress) WithoutPrevious(id GroupID) Progress {
	if _, ok := p.previous[id]; !ok {
		return p
	}
	next := maps.Clone(p.previous)
	delete(next, id)
	return Progress{previous: next}
}

// GroupIDs lists the groups with progress, sorted.
func (p Progress) GroupIDs() []GroupID {
	return slices.Sorted(maps.Keys(p.previous))
}

// Len is the number of groups with progress.
func (p Progress) Len() int { return len(p.previous) }

// MarshalJSON encodes progress as an object of group ID to index.
func (p Progress) MarshalJSON() ([]byte, error) {
	if p.previous == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.previous)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var m map[GroupID]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.previous = m
	return nil
}
