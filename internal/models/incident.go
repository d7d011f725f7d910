package models

import (
	"time"
)

// IncidentStatus is the lifecycle state of a reported incident.
// The only legal transitions are open -> resolved and resolved -> open.
type IncidentStatus string

const (
	StatusOpen     IncidentStatus = "open"
	StatusResolved IncidentStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s IncidentStatus) Valid() bool {
	return s == StatusOpen || s == StatusResolved
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Witness is the contact information of the person filing a report.
type Witness struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Location describes where an incident happened. LatLng is nil until the
// reporter has confirmed a pin position on the map.
type Location struct {
	Name         string  `json:"name,omitempty"`
	Address      string  `json:"address"`
	LatLng       *LatLng `json:"latlng,omitempty"`
	RadiusMeters int     `json:"radius_meters,omitempty"`
}

// Incident is the central entity: one witness-submitted emergency report.
type Incident struct {
	ID            string         `json:"id"`
	Date          time.Time      `json:"date"`
	Status        IncidentStatus `json:"status"`
	Person        Witness        `json:"person"`
	EmergencyDesc string         `json:"emergency_desc"`
	Location      Location       `json:"location"`
	PictureLink   string         `json:"picture_link,omitempty"`
	Comments      string         `json:"comments,omitempty"`
}
