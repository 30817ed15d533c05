package domain

import (
	"fmt"
	"time"
)

// Site identifies an observatory site. The set is observatory specific.
type Site string

// Known sites.
const (
	SiteGN Site = "GN"
	SiteGS Site = "GS"
)

// AllSites lists every site in a stable order.
var AllSites = []Site{SiteGN, SiteGS}

// SiteInfo carries the fixed geodetic data of a site. Latitude and longitude
// are decimal degrees (east positive), altitude is metres.
type SiteInfo struct {
	Name             string
	CoordinateCenter string
	Latitude         float64
	Longitude        float64
	Altitude         float64
	TimeZone         string
}

var siteInfo = map[Site]SiteInfo{
	SiteGN: {
		Name:             "Gemini North",
		CoordinateCenter: "568@399",
		Latitude:         19.8238068,
		Longitude:        -155.4690550,
		Altitude:         4213.0,
		TimeZone:         "Pacific/Honolulu",
	},
	SiteGS: {
		Name:             "Gemini South",
		CoordinateCenter: "I11@399",
		Latitude:         -30.2407494,
		Longitude:        -70.7366867,
		Altitude:         2722.0,
		TimeZone:         "America/Santiago",
	},
}

// Info returns the site's geodetic data.
func (s Site) Info() (SiteInfo, error) {
	info, ok := siteInfo[s]
	if !ok {
		return SiteInfo{}, NotFoundError{Kind: "site", ID: string(s)}
	}
	return info, nil
}

// Location loads the site's local time zone.
func (s Site) Location() (*time.Location, error) {
	info, err := s.Info()
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(info.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("site %s time zone %s: %w", s, info.TimeZone, err)
	}
	return loc, nil
}

// UnmarshalText validates the site code.
func (s *Site) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	v, err := parseLabel("site", AllSites, string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
