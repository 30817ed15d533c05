// Package testutil holds shared fixtures and architecture guards for tests.
package testutil

import (
	"fmt"
	"time"

	"obscore/pkg/domain"
)

// Atom builds an atom whose execution time is split into program and partner time.
func Atom(id string, prog, part time.Duration, instrument string, observed bool) domain.Atom {
	a := domain.Atom{
		ID:          id,
		ExecTime:    prog + part,
		ProgTime:    prog,
		PartTime:    part,
		Observed:    observed,
		Wavelengths: []float64{0.5},
	}
	if instrument != "" {
		a.Resources = []domain.Resource{{ID: instrument}}
	}
	return a
}

// Observation builds a ready science observation at Gemini North with a
// sidereal base target guided by PWFS2.
func Observation(id string, atoms ...domain.Atom) domain.Observation {
	target := fmt.Sprintf("target-%s", id)
	return domain.Observation{
		ID:       domain.ObservationID(id),
		Title:    "observation " + id,
		Site:     domain.SiteGN,
		Status:   domain.StatusReady,
		Active:   true,
		Class:    domain.ClassScience,
		Targets:  domain.Targets{domain.SiderealTarget{TargetDetails: domain.TargetDetails{Name: target, Type: domain.TargetBase}, RA: 150.1, Dec: 2.2, Epoch: 2000}},
		Guiding:  map[string]string{"PWFS2": target},
		Sequence: atoms,
	}
}

// Program builds a valid queue program with two subgroups under the root:
//
//	root (AND, 2 of 2)
//	├── 1 (AND, 2 of 3): o-1 (1h, half observed), o-2 (1h), o-3 (2h)
//	└── 2 (OR, 1 of 2):  o-4 (45m, NIRI), o-5 (30m)
//
// Program time awarded is 10h with 2h of partner time.
func Program(id domain.ProgramID) domain.Program {
	obs := func(oid string, atoms ...domain.Atom) domain.Node {
		return domain.ObservationNode(Observation(oid, atoms...))
	}
	and := domain.Group{
		ID: "1", ProgramID: id, Name: "science", Kind: domain.GroupAnd, NumberToObserve: 2,
		Children: []domain.Node{
			obs("o-1",
				Atom("o-1-a1", 20*time.Minute, 10*time.Minute, "GMOS-N", true),
				Atom("o-1-a2", 30*time.Minute, 0, "GMOS-N", false)),
			obs("o-2", Atom("o-2-a1", time.Hour, 0, "GMOS-N", false)),
			obs("o-3", Atom("o-3-a1", 90*time.Minute, 30*time.Minute, "GMOS-N", false)),
		},
	}
	or := domain.Group{
		ID: "2", ProgramID: id, Name: "alternatives", Kind: domain.GroupOr, NumberToObserve: 1,
		Children: []domain.Node{
			obs("o-4", Atom("o-4-a1", 45*time.Minute, 0, "NIRI", false)),
			obs("o-5", Atom("o-5-a1", 30*time.Minute, 0, "GMOS-N", false)),
		},
	}
	return domain.Program{
		ID:    id,
		Band:  domain.Band1,
		Mode:  domain.ModeQueue,
		Type:  domain.ProgramQueue,
		Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.July, 31, 0, 0, 0, 0, time.UTC),
		AllocatedTime: []domain.TimeAllocation{
			{Category: domain.CategoryUS, ProgramAwarded: 10 * time.Hour, PartnerAwarded: 2 * time.Hour, Band: domain.Band1},
		},
		Root: domain.Group{
			ID: domain.RootGroupID, ProgramID: id, Kind: domain.GroupAnd, NumberToObserve: 2,
			Children: []domain.Node{domain.GroupNode(and), domain.GroupNode(or)},
		},
	}
}
