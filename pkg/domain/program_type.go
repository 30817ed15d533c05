package domain

import "fmt"

// ProgramMode is the operational mode of a program.
type ProgramMode int

// Program modes. PV (priority visitor) is a hybrid of queue and classical.
const (
	ModeQueue ProgramMode = iota
	ModeClassical
	ModePV
)

var programModeNames = []string{"QUEUE", "CLASSICAL", "PV"}

func (m ProgramMode) String() string { return ordinalName(programModeNames, m) }

// MarshalText encodes the mode by name.
func (m ProgramMode) MarshalText() ([]byte, error) {
	return marshalOrdinal("program mode", programModeNames, m)
}

// UnmarshalText decodes a mode name.
func (m *ProgramMode) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[ProgramMode]("program mode", programModeNames, string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ProgramType identifies a program type by its abbreviation, such as "Q" or "LP".
type ProgramType string

// Program types.
const (
	ProgramClassical          ProgramType = "C"
	ProgramCalibration        ProgramType = "CAL"
	ProgramDirectorsTime      ProgramType = "DD"
	ProgramDemoScience        ProgramType = "DS"
	ProgramEngineering        ProgramType = "ENG"
	ProgramFastTurnaround     ProgramType = "FT"
	ProgramLarge              ProgramType = "LP"
	ProgramQueue              ProgramType = "Q"
	ProgramSystemVerification ProgramType = "SV"
)

type programTypeInfo struct {
	name    string
	science bool
}

var programTypes = map[ProgramType]programTypeInfo{
	ProgramClassical:          {"Classical", true},
	ProgramCalibration:        {"Calibration", false},
	ProgramDirectorsTime:      {"Director's Time", true},
	ProgramDemoScience:        {"Demo Science", true},
	ProgramEngineering:        {"Engineering", false},
	ProgramFastTurnaround:     {"Fast Turnaround", true},
	ProgramLarge:              {"Large Program", true},
	ProgramQueue:              {"Queue", true},
	ProgramSystemVerification: {"System Verification", true},
}

// Name returns the readable name of the type.
func (t ProgramType) Name() string { return programTypes[t].name }

// IsScience reports whether programs of this type do science. Calibration and
// engineering programs do not.
func (t ProgramType) IsScience() bool { return programTypes[t].science }

// UnmarshalText rejects unknown abbreviations.
func (t *ProgramType) UnmarshalText(text []byte) error {
	v := ProgramType(text)
	if _, ok := programTypes[v]; !ok {
		return fmt.Errorf("unknown program type %q", text)
	}
	*t = v
	return nil
}

// TooType is the target-of-opportunity level. Levels are ordered: a program
// may only contain observations at or below its own level.
type TooType int

// Target-of-opportunity levels, lowest first.
const (
	TooStandard TooType = iota
	TooRapid
	TooInterrupt
)

var tooTypeNames = []string{"STANDARD", "RAPID", "INTERRUPT"}

func (t TooType) String() string { return ordinalName(tooTypeNames, t) }

// MarshalText encodes the level by name.
func (t TooType) MarshalText() ([]byte, error) { return marshalOrdinal("too type", tooTypeNames, t) }

// UnmarshalText decodes a level name.
func (t *TooType) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[TooType]("too type", tooTypeNames, string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
