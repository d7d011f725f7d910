package v1

import "time"

// LoginRequest carries the staff password for the dashboard gate.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the bearer token for staff-only operations.
type LoginResponse struct {
	Token string `json:"token"`
}

// LatLngDTO is a geographic coordinate pair.
type LatLngDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WitnessDTO is the reporting person's contact information.
type WitnessDTO struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// LocationDTO describes where an incident happened.
type LocationDTO struct {
	Name         string     `json:"name,omitempty"`
	Address      string     `json:"address"`
	LatLng       *LatLngDTO `json:"latlng,omitempty"`
	RadiusMeters int        `json:"radius_meters,omitempty"`
}

// IncidentResponse is the full incident as shown in the list and details panel.
type IncidentResponse struct {
	ID            string      `json:"id"`
	Date          time.Time   `json:"date"`
	Status        string      `json:"status"`
	Person        WitnessDTO  `json:"person"`
	EmergencyDesc string      `json:"emergency_desc"`
	Location      LocationDTO `json:"location"`
	PictureLink   string      `json:"picture_link,omitempty"`
	Comments      string      `json:"comments,omitempty"`
}

// SetStatusRequest transitions an incident between open and resolved.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open resolved"`
}

// BoundsRequest reports the map bounds after a settled pan or zoom.
type BoundsRequest struct {
	North float64 `json:"north" validate:"gte=-90,lte=90"`
	South float64 `json:"south" validate:"gte=-90,lte=90"`
	East  float64 `json:"east" validate:"gte=-180,lte=180"`
	West  float64 `json:"west" validate:"gte=-180,lte=180"`
}

// CreateReportResponse returns the new session id with its initial state.
type CreateReportResponse struct {
	SessionID string          `json:"session_id"`
	Session   SessionResponse `json:"session"`
}

// SessionResponse is the render state of one report wizard session.
type SessionResponse struct {
	Step      int              `json:"step"`
	Location  string           `json:"location"`
	Values    IncidentResponse `json:"values"`
	Candidate *LatLngDTO       `json:"candidate,omitempty"`
	Warning   string           `json:"warning,omitempty"`
	InFlight  bool             `json:"in_flight"`
	Editing   bool             `json:"editing"`
	Complete  bool             `json:"complete"`
}

// AddressRequest is a free-text address to geocode.
type AddressRequest struct {
	Address string `json:"address" validate:"required"`
}

// PinRequest is a direct map click or pin drag position.
type PinRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// BackRequest navigates the wizard to an earlier step.
type BackRequest struct {
	Step int `json:"step" validate:"gte=0"`
}

// FieldRequest applies one typed details-step field update.
type FieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// SubmitResponse carries the committed incident of a successful submission.
type SubmitResponse struct {
	Incident IncidentResponse `json:"incident"`
}

// FieldErrorsResponse carries per-field validation messages of a rejected
// submission. The session stays open for corrections.
type FieldErrorsResponse struct {
	FieldErrors map[string]string `json:"field_errors"`
}
