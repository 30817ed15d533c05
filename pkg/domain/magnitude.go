package domain

import "sort"

// MagnitudeSystem is the photometric system a magnitude band is defined in.
type MagnitudeSystem string

// Supported magnitude systems.
const (
	SystemVega MagnitudeSystem = "VEGA"
	SystemAB   MagnitudeSystem = "AB"
	SystemJy   MagnitudeSystem = "JY"
)

// MagnitudeBand describes a photometric band. Centre and width are in microns.
// Bands are looked up by name with LookupMagnitudeBand rather than constructed.
type MagnitudeBand struct {
	Name        string
	Center      float64
	Width       float64
	System      MagnitudeSystem
	Description string
}

var magnitudeBands = map[string]MagnitudeBand{
	"u":  {Name: "u", Center: 0.356, Width: 0.046, System: SystemAB, Description: "UV"},
	"g":  {Name: "g", Center: 0.483, Width: 0.099, System: SystemAB, Description: "green"},
	"r":  {Name: "r", Center: 0.626, Width: 0.096, System: SystemAB, Description: "red"},
	"i":  {Name: "i", Center: 0.767, Width: 0.106, System: SystemAB, Description: "far red"},
	"z":  {Name: "z", Center: 0.910, Width: 0.125, System: SystemAB, Description: "near-infrared"},
	"U":  {Name: "U", Center: 0.360, Width: 0.075, System: SystemVega, Description: "ultraviolet"},
	"B":  {Name: "B", Center: 0.440, Width: 0.090, System: SystemVega, Description: "blue"},
	"V":  {Name: "V", Center: 0.550, Width: 0.085, System: SystemVega, Description: "visual"},
	"UC": {Name: "UC", Center: 0.610, Width: 0.063, System: SystemVega, Description: "UCAC"},
	"R":  {Name: "R", Center: 0.670, Width: 0.100, System: SystemVega, Description: "red"},
	"I":  {Name: "I", Center: 0.870, Width: 0.100, System: SystemVega, Description: "infrared"},
	"Y":  {Name: "Y", Center: 1.020, Width: 0.120, System: SystemVega},
	"J":  {Name: "J", Center: 1.250, Width: 0.240, System: SystemVega},
	"H":  {Name: "H", Center: 1.650, Width: 0.300, System: SystemVega},
	"K":  {Name: "K", Center: 2.200, Width: 0.410, System: SystemVega},
	"L":  {Name: "L", Center: 3.760, Width: 0.700, System: SystemVega},
	"M":  {Name: "M", Center: 4.770, Width: 0.240, System: SystemVega},
	"N":  {Name: "N", Center: 10.470, Width: 5.230, System: SystemVega},
	"Q":  {Name: "Q", Center: 20.130, Width: 1.650, System: SystemVega},
	"AP": {Name: "AP", Center: 0.550, Width: 0.085, System: SystemVega, Description: "apparent"},
}

// LookupMagnitudeBand returns the band with the given case-sensitive name
// ("r" and "R" are different bands).
func LookupMagnitudeBand(name string) (MagnitudeBand, error) {
	band, ok := magnitudeBands[name]
	if !ok {
		return MagnitudeBand{}, NotFoundError{Kind: "magnitude band", ID: name}
	}
	return band, nil
}

// MagnitudeBandNames lists all known band names in sorted order.
func MagnitudeBandNames() []string {
	names := make([]string, 0, len(magnitudeBands))
	for name := range magnitudeBands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Magnitude is a brightness measurement in a named band.
type Magnitude struct {
	Band  string   `json:"band"`
	Value float64  `json:"value"`
	Error *float64 `json:"error,omitempty"`
}
