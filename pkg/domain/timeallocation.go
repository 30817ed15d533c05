package domain

import (
	"fmt"
	"time"
)

// Band is the program's ranking band; band 1 is the highest.
type Band int

// Program bands.
const (
	Band1 Band = 1
	Band2 Band = 2
	Band3 Band = 3
	Band4 Band = 4
)

// Valid reports whether the band is one of the four defined bands.
func (b Band) Valid() bool { return b >= Band1 && b <= Band4 }

// TimeAccountingCode is the partner or internal category that awarded time.
type TimeAccountingCode string

// Time accounting categories.
const (
	CategoryAR   TimeAccountingCode = "AR"
	CategoryAU   TimeAccountingCode = "AU"
	CategoryBR   TimeAccountingCode = "BR"
	CategoryCA   TimeAccountingCode = "CA"
	CategoryCFH  TimeAccountingCode = "CFH"
	CategoryCL   TimeAccountingCode = "CL"
	CategoryKR   TimeAccountingCode = "KR"
	CategoryDD   TimeAccountingCode = "DD"
	CategoryDS   TimeAccountingCode = "DS"
	CategoryGS   TimeAccountingCode = "GS"
	CategoryGT   TimeAccountingCode = "GT"
	CategoryJP   TimeAccountingCode = "JP"
	CategoryLP   TimeAccountingCode = "LP"
	CategoryLTP  TimeAccountingCode = "LTP"
	CategorySV   TimeAccountingCode = "SV"
	CategoryUH   TimeAccountingCode = "UH"
	CategoryUK   TimeAccountingCode = "UK"
	CategoryUS   TimeAccountingCode = "US"
	CategoryXCHK TimeAccountingCode = "XCHK"
)

var categoryDescriptions = map[TimeAccountingCode]string{
	CategoryAR:   "Argentina",
	CategoryAU:   "Australia",
	CategoryBR:   "Brazil",
	CategoryCA:   "Canada",
	CategoryCFH:  "CFHT Exchange",
	CategoryCL:   "Chile",
	CategoryKR:   "Republic of Korea",
	CategoryDD:   "Director's Time",
	CategoryDS:   "Demo Science",
	CategoryGS:   "Gemini Staff",
	CategoryGT:   "Guaranteed Time",
	CategoryJP:   "Subaru",
	CategoryLP:   "Large Program",
	CategoryLTP:  "Limited-term Participant",
	CategorySV:   "System Verification",
	CategoryUH:   "University of Hawaii",
	CategoryUK:   "United Kingdom",
	CategoryUS:   "United States",
	CategoryXCHK: "Keck Exchange",
}

// Description returns the human readable category name.
func (c TimeAccountingCode) Description() string { return categoryDescriptions[c] }

// UnmarshalText rejects unknown categories.
func (c *TimeAccountingCode) UnmarshalText(text []byte) error {
	code := TimeAccountingCode(text)
	if _, ok := categoryDescriptions[code]; !ok {
		return fmt.Errorf("unknown time accounting code %q", text)
	}
	*c = code
	return nil
}

// TimeAllocation is the time one category awarded to a program.
type TimeAllocation struct {
	Category       TimeAccountingCode `json:"category"`
	ProgramAwarded time.Duration      `json:"program_awarded"`
	PartnerAwarded time.Duration      `json:"partner_awarded"`
	Band           Band               `json:"band,omitempty"`
}

// TotalAwarded is program plus partner time.
func (a TimeAllocation) TotalAwarded() time.Duration { return a.ProgramAwarded + a.PartnerAwarded }

// TimeUsed is the time charged against a program.
type TimeUsed struct {
	ProgramUsed time.Duration `json:"program_used"`
	PartnerUsed time.Duration `json:"partner_used"`
	NotCharged  time.Duration `json:"not_charged"`
}

// TotalUsed is program plus partner time; uncharged time is excluded.
func (u TimeUsed) TotalUsed() time.Duration { return u.ProgramUsed + u.PartnerUsed }
