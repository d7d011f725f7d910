package listview

import (
	"sort"
	"strings"

	"github.com/JetsonAtWork/incident-triage/internal/models"
)

// SortColumn is one of the table headers of the incident list.
type SortColumn string

const (
	SortByType     SortColumn = "type"     // lexicographic on emergency description
	SortByLocation SortColumn = "location" // display name, falling back to address
	SortByReported SortColumn = "reported" // chronological
	SortByStatus   SortColumn = "status"   // lexicographic
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Scope selects the base set the list projects: every incident, or only the
// ones inside the current map bounds.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeVisible Scope = "visible"
)

// View is the ephemeral filter/sort state of the incident table. It holds no
// incidents; Project derives a fresh list on every call. Defaults: no filter,
// all incidents, newest first.
type View struct {
	Filter    string
	Scope     Scope
	Column    SortColumn
	Direction SortDirection
}

func NewView() *View {
	v := &View{}
	v.ClearFilters()
	return v
}

// ClearFilters resets filter text, scope and sort to the defaults.
func (v *View) ClearFilters() {
	v.Filter = ""
	v.Scope = ScopeAll
	v.Column = SortByReported
	v.Direction = Descending
}

// SetSort applies a header click: the active column toggles direction, a
// different column resets to ascending.
func (v *View) SetSort(column SortColumn) {
	if v.Column == column {
		if v.Direction == Ascending {
			v.Direction = Descending
		} else {
			v.Direction = Ascending
		}
		return
	}
	v.Column = column
	v.Direction = Ascending
}

// Project filters and sorts the base set for tabular display. The input is
// not mutated; ties keep their prior relative order.
func (v *View) Project(base []models.Incident) []models.Incident {
	out := make([]models.Incident, 0, len(base))
	for _, inc := range base {
		if v.matches(inc) {
			out = append(out, inc)
		}
	}

	less := v.lessFunc()
	sort.SliceStable(out, func(i, j int) bool {
		if v.Direction == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// matches runs the typo-tolerant filter across description, address, location
// name and status. An empty filter matches everything.
func (v *View) matches(inc models.Incident) bool {
	query := strings.TrimSpace(v.Filter)
	if query == "" {
		return true
	}
	fields := []string{
		inc.EmergencyDesc,
		inc.Location.Address,
		inc.Location.Name,
		string(inc.Status),
	}
	for _, f := range fields {
		if fuzzyMatch(query, f) {
			return true
		}
	}
	return false
}

func (v *View) lessFunc() func(a, b models.Incident) bool {
	switch v.Column {
	case SortByType:
		return func(a, b models.Incident) bool {
			return strings.ToLower(a.EmergencyDesc) < strings.ToLower(b.EmergencyDesc)
		}
	case SortByLocation:
		return func(a, b models.Incident) bool {
			return strings.ToLower(displayLocation(a)) < strings.ToLower(displayLocation(b))
		}
	case SortByStatus:
		return func(a, b models.Incident) bool {
			return a.Status < b.Status
		}
	default: // SortByReported
		return func(a, b models.Incident) bool {
			return a.Date.Before(b.Date)
		}
	}
}

// displayLocation is what the table shows in the Location column: the place
// name when one exists, otherwise the address.
func displayLocation(inc models.Incident) string {
	if inc.Location.Name != "" {
		return inc.Location.Name
	}
	return inc.Location.Address
}
