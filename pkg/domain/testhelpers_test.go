package domain

import (
	"fmt"
	"time"
)

func atom(id string, prog, part time.Duration, observed bool) Atom {
	return Atom{ID: id, ExecTime: prog + part, ProgTime: prog, PartTime: part, Observed: observed}
}

func observation(id string, atoms ...Atom) Observation {
	return Observation{
		ID:       ObservationID(id),
		Site:     SiteGN,
		Status:   StatusReady,
		Active:   true,
		Class:    ClassScience,
		Targets:  Targets{SiderealTarget{TargetDetails: TargetDetails{Name: "M31", Type: TargetBase}, RA: 10.6847, Dec: 41.2687, Epoch: 2000}},
		Sequence: atoms,
	}
}

func andGroup(id string, nto int, children ...Node) Group {
	return Group{ID: GroupID(id), ProgramID: "GN-2024A-Q-1", Kind: GroupAnd, NumberToObserve: nto, Children: children}
}

func orGroup(id string, nto int, children ...Node) Group {
	return Group{ID: GroupID(id), ProgramID: "GN-2024A-Q-1", Kind: GroupOr, NumberToObserve: nto, Children: children}
}

// threeChildAnd builds an AND group whose children each take 1h, 2h and 3h.
func threeChildAnd(nto int) Group {
	children := make([]Node, 3)
	for i := range children {
		d := time.Duration(i+1) * time.Hour
		children[i] = ObservationNode(observation(fmt.Sprintf("obs-%d", i), atom(fmt.Sprintf("a%d", i), d, 0, false)))
	}
	return andGroup("g1", nto, children...)
}

func program(root Group) Program {
	root.ID = RootGroupID
	return Program{
		ID:    "GN-2024A-Q-1",
		Band:  Band1,
		Mode:  ModeQueue,
		Type:  ProgramQueue,
		Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.July, 31, 0, 0, 0, 0, time.UTC),
		AllocatedTime: []TimeAllocation{
			{Category: CategoryUS, ProgramAwarded: 10 * time.Hour, PartnerAwarded: 2 * time.Hour},
		},
		Root: root,
	}
}

type fakeProperties struct{ instruments map[string]bool }

func (f fakeProperties) IsInstrument(r Resource) bool { return f.instruments[r.ID] }

func (fakeProperties) AcquisitionTime(Resource, ObservationMode) (time.Duration, bool) {
	return 0, false
}
