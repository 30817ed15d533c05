// Package gemini implements domain.ObservatoryProperties for the Gemini
// telescopes. The instrument table is embedded YAML and may be replaced by a
// file of the same shape.
package gemini

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"obscore/pkg/domain"
)

//go:embed properties.yaml
var embeddedProperties []byte

// Standard-star time charged per calibration sequence.
const (
	StandardTimeNIR     = 90 * time.Minute
	StandardTimeThermal = time.Hour
	StandardTimeImaging = 2 * time.Hour
	// NIRWavelengthLimit is the longest wavelength, in microns, treated as
	// near infrared when sizing standards.
	NIRWavelengthLimit = 2.5
)

var knownModes = map[domain.ObservationMode]struct{}{
	domain.ModeUnknown:  {},
	domain.ModeImaging:  {},
	domain.ModeLongslit: {},
	domain.ModeIFU:      {},
	domain.ModeMOS:      {},
	domain.ModeXD:       {},
	domain.ModeCoron:    {},
	domain.ModeNRM:      {},
}

// Instrument describes one facility instrument.
type Instrument struct {
	ID                 string                                   `yaml:"id"`
	Standards          bool                                     `yaml:"standards"`
	PartnerCalibration time.Duration                            `yaml:"partner_calibration"`
	Acquisition        map[domain.ObservationMode]time.Duration `yaml:"acquisition"`
}

type document struct {
	Instruments []Instrument `yaml:"instruments"`
}

// Properties is the Gemini instrument policy. The zero value knows no
// instruments; use Default, Load or LoadFile.
type Properties struct {
	instruments []Instrument
}

var _ domain.ObservatoryProperties = (*Properties)(nil)

// Default returns the properties built from the embedded instrument table.
func Default() (*Properties, error) {
	return Load(bytes.NewReader(embeddedProperties))
}

// LoadFile reads an instrument table from path.
func LoadFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observatory file: %w", err)
	}
	defer func() { _ = f.Close() }()
	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Load decodes and validates an instrument table.
func Load(r io.Reader) (*Properties, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode observatory properties: %w", err)
	}
	if len(doc.Instruments) == 0 {
		return nil, errors.New("observatory properties list no instruments")
	}
	seen := make(map[string]struct{}, len(doc.Instruments))
	for i, inst := range doc.Instruments {
		if strings.TrimSpace(inst.ID) == "" {
			return nil, fmt.Errorf("instrument %d: id required", i)
		}
		if _, dup := seen[inst.ID]; dup {
			return nil, fmt.Errorf("instrument %s: duplicate id", inst.ID)
		}
		seen[inst.ID] = struct{}{}
		if inst.PartnerCalibration < 0 {
			return nil, fmt.Errorf("instrument %s: negative partner calibration", inst.ID)
		}
		for mode, d := range inst.Acquisition {
			if _, ok := knownModes[mode]; !ok {
				return nil, fmt.Errorf("instrument %s: unknown observation mode %q", inst.ID, mode)
			}
			if d < 0 {
				return nil, fmt.Errorf("instrument %s: negative acquisition time for %s", inst.ID, mode)
			}
		}
	}
	return &Properties{instruments: doc.Instruments}, nil
}

// Instruments returns a copy of the instrument table.
func (p *Properties) Instruments() []Instrument {
	out := make([]Instrument, len(p.instruments))
	copy(out, p.instruments)
	return out
}

// lookup finds the instrument whose id occurs in the resource id, so that
// "GMOS-N" matches a resource named "GMOS-N_IFU".
func (p *Properties) lookup(r domain.Resource) (Instrument, bool) {
	for _, inst := range p.instruments {
		if strings.Contains(r.ID, inst.ID) {
			return inst, true
		}
	}
	return Instrument{}, false
}

// IsInstrument reports whether r names a Gemini instrument.
func (p *Properties) IsInstrument(r domain.Resource) bool {
	_, ok := p.lookup(r)
	return ok
}

// AcquisitionTime returns the acquisition overhead for instrument r in mode.
// The result is false when r is not an instrument or the instrument does not
// support mode.
func (p *Properties) AcquisitionTime(r domain.Resource, mode domain.ObservationMode) (time.Duration, bool) {
	inst, ok := p.lookup(r)
	if !ok {
		return 0, false
	}
	d, ok := inst.Acquisition[mode]
	return d, ok
}

// StandardTime is the standard-star time needed for a calibration sequence
// of calLength steps. Single-step sequences need none. Instruments with
// standards cost 1.5h when every wavelength is near infrared and 1h
// otherwise; failing that, imaging costs 2h.
func (p *Properties) StandardTime(resources []domain.Resource, wavelengths []float64, modes []domain.ObservationMode, calLength int) time.Duration {
	if calLength <= 1 {
		return 0
	}
	for _, r := range resources {
		if inst, ok := p.lookup(r); ok && inst.Standards {
			if allNIR(wavelengths) {
				return StandardTimeNIR
			}
			return StandardTimeThermal
		}
	}
	for _, m := range modes {
		if m == domain.ModeImaging {
			return StandardTimeImaging
		}
	}
	return 0
}

// TotalUsed is the observation's time including instrument calibrations
// charged when partner time has been spent.
func (p *Properties) TotalUsed(o domain.Observation) (time.Duration, error) {
	total, err := o.TotalUsed()
	if err != nil {
		return 0, err
	}
	if part, _ := o.PartnerUsed(); part <= 0 {
		return total, nil
	}
	var extra time.Duration
	for _, r := range o.RequiredResources() {
		if inst, ok := p.lookup(r); ok {
			extra = max(extra, inst.PartnerCalibration)
		}
	}
	return total + extra, nil
}

// StandardsForNIR is the number of standards to take alongside execSci of
// near-infrared science. Spectroscopy needs the science wavelengths.
func StandardsForNIR(execSci time.Duration, wavelengths []float64, mode domain.ObservationMode) (int, error) {
	per := StandardTimeImaging
	if mode != domain.ModeImaging {
		if len(wavelengths) == 0 {
			return 0, fmt.Errorf("%s standards need at least one wavelength", mode)
		}
		per = StandardTimeThermal
		if allNIR(wavelengths) {
			per = StandardTimeNIR
		}
	}
	return max(1, int(execSci/per)), nil
}

func allNIR(wavelengths []float64) bool {
	for _, w := range wavelengths {
		if w > NIRWavelengthLimit {
			return false
		}
	}
	return true
}
