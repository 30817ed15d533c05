package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ResourceType classifies an observatory resource.
type ResourceType string

// Resource classifications.
const (
	ResourceNone       ResourceType = "NONE"
	ResourceSite       ResourceType = "SITE"
	ResourceWFS        ResourceType = "WFS"
	ResourceInstrument ResourceType = "INSTRUMENT"
	ResourceFPU        ResourceType = "FPU"
	ResourceDisperser  ResourceType = "DISPERSER"
)

// Resource is anything whose availability gates an observation: an
// instrument, part of one, a guider, or staff.
type Resource struct {
	ID          string `json:"id"`
	Site        Site   `json:"site,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewResource validates and builds a resource. Identifiers that are empty or
// contain "NONE" are placeholders from the source database and are rejected.
func NewResource(id string, site Site) (Resource, error) {
	if err := validateResourceID(id); err != nil {
		return Resource{}, err
	}
	return Resource{ID: id, Site: site}, nil
}

func validateResourceID(id string) error {
	if strings.TrimSpace(id) == "" || strings.Contains(strings.ToUpper(id), "NONE") {
		return DataIntegrityError{Kind: KindResource, ID: id, Reason: "placeholder resource identifier"}
	}
	return nil
}

func (r Resource) String() string {
	if r.Site == "" {
		return r.ID
	}
	return fmt.Sprintf("%s@%s", r.ID, r.Site)
}

// resourceSet accumulates unique resources.
type resourceSet map[Resource]struct{}

func (s resourceSet) add(rs ...Resource) {
	for _, r := range rs {
		s[r] = struct{}{}
	}
}

func (s resourceSet) sorted() []Resource {
	out := make([]Resource, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Site < out[j].Site
	})
	return out
}
