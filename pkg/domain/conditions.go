package domain

// CloudCover bins an observation's cloud cover requirement. Higher bins are
// less restrictive.
type CloudCover int

// Cloud cover bins, most restrictive first.
const (
	CC50 CloudCover = iota
	CC70
	CC80
	CCAny
)

var (
	cloudCoverNames  = []string{"CC50", "CC70", "CC80", "CCANY"}
	cloudCoverValues = []float64{0.5, 0.7, 0.8, 1.0}
)

// Value returns the fractional percentile of the bin.
func (c CloudCover) Value() float64 { return cloudCoverValues[c] }

func (c CloudCover) String() string { return ordinalName(cloudCoverNames, c) }

// MarshalText encodes the bin by name.
func (c CloudCover) MarshalText() ([]byte, error) {
	return marshalOrdinal("cloud cover", cloudCoverNames, c)
}

// UnmarshalText decodes a bin name such as "CC70".
func (c *CloudCover) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[CloudCover]("cloud cover", cloudCoverNames, string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ImageQuality bins an observation's image quality requirement.
type ImageQuality int

// Image quality bins, most restrictive first.
const (
	IQ20 ImageQuality = iota
	IQ70
	IQ85
	IQAny
)

var (
	imageQualityNames  = []string{"IQ20", "IQ70", "IQ85", "IQANY"}
	imageQualityValues = []float64{0.2, 0.7, 0.85, 1.0}
)

// Value returns the fractional percentile of the bin.
func (q ImageQuality) Value() float64 { return imageQualityValues[q] }

func (q ImageQuality) String() string { return ordinalName(imageQualityNames, q) }

// MarshalText encodes the bin by name.
func (q ImageQuality) MarshalText() ([]byte, error) {
	return marshalOrdinal("image quality", imageQualityNames, q)
}

// UnmarshalText decodes a bin name such as "IQ85".
func (q *ImageQuality) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[ImageQuality]("image quality", imageQualityNames, string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// SkyBackground bins an observation's sky background requirement.
type SkyBackground int

// Sky background bins, most restrictive first.
const (
	SB20 SkyBackground = iota
	SB50
	SB80
	SBAny
)

var (
	skyBackgroundNames  = []string{"SB20", "SB50", "SB80", "SBANY"}
	skyBackgroundValues = []float64{0.2, 0.5, 0.8, 1.0}
)

// Value returns the fractional percentile of the bin.
func (s SkyBackground) Value() float64 { return skyBackgroundValues[s] }

func (s SkyBackground) String() string { return ordinalName(skyBackgroundNames, s) }

// MarshalText encodes the bin by name.
func (s SkyBackground) MarshalText() ([]byte, error) {
	return marshalOrdinal("sky background", skyBackgroundNames, s)
}

// UnmarshalText decodes a bin name such as "SB50".
func (s *SkyBackground) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[SkyBackground]("sky background", skyBackgroundNames, string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// WaterVapor bins an observation's water vapor requirement.
type WaterVapor int

// Water vapor bins, most restrictive first.
const (
	WV20 WaterVapor = iota
	WV50
	WV80
	WVAny
)

var (
	waterVaporNames  = []string{"WV20", "WV50", "WV80", "WVANY"}
	waterVaporValues = []float64{0.2, 0.5, 0.8, 1.0}
)

// Value returns the fractional percentile of the bin.
func (w WaterVapor) Value() float64 { return waterVaporValues[w] }

func (w WaterVapor) String() string { return ordinalName(waterVaporNames, w) }

// MarshalText encodes the bin by name.
func (w WaterVapor) MarshalText() ([]byte, error) {
	return marshalOrdinal("water vapor", waterVaporNames, w)
}

// UnmarshalText decodes a bin name such as "WVANY".
func (w *WaterVapor) UnmarshalText(text []byte) error {
	v, err := parseOrdinal[WaterVapor]("water vapor", waterVaporNames, string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Conditions is a set of observing condition bins. As a requirement it is the
// worst conditions an observation tolerates; as a measurement it is the
// conditions on sky.
type Conditions struct {
	CC CloudCover    `json:"cc"`
	IQ ImageQuality  `json:"iq"`
	SB SkyBackground `json:"sb"`
	WV WaterVapor    `json:"wv"`
}

// LeastRestrictive returns the conditions with every field in its ANY bin.
func LeastRestrictive() Conditions {
	return Conditions{CC: CCAny, IQ: IQAny, SB: SBAny, WV: WVAny}
}

// MostRestrictive returns, field by field, the most restrictive bin found in
// conditions. Fields are resolved independently, so the result may combine bins
// that never appeared together in a single input. With no input it returns
// LeastRestrictive.
func MostRestrictive(conditions ...Conditions) Conditions {
	out := LeastRestrictive()
	for _, c := range conditions {
		out.CC = min(out.CC, c.CC)
		out.IQ = min(out.IQ, c.IQ)
		out.SB = min(out.SB, c.SB)
		out.WV = min(out.WV, c.WV)
	}
	return out
}

// Satisfies reports whether the receiver, taken as actual conditions, is at
// least as good as required in every field.
func (c Conditions) Satisfies(required Conditions) bool {
	return c.CC <= required.CC && c.IQ <= required.IQ && c.SB <= required.SB && c.WV <= required.WV
}
