package v1

import (
	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/reportform"
)

// ModelToIncidentResponse converts a domain incident into its response DTO.
func ModelToIncidentResponse(model models.Incident) IncidentResponse {
	resp := IncidentResponse{
		ID:            model.ID,
		Date:          model.Date,
		Status:        string(model.Status),
		Person:        WitnessDTO{Name: model.Person.Name, PhoneNumber: model.Person.PhoneNumber},
		EmergencyDesc: model.EmergencyDesc,
		Location: LocationDTO{
			Name:         model.Location.Name,
			Address:      model.Location.Address,
			RadiusMeters: model.Location.RadiusMeters,
		},
		PictureLink: model.PictureLink,
		Comments:    model.Comments,
	}
	if model.Location.LatLng != nil {
		resp.Location.LatLng = &LatLngDTO{Lat: model.Location.LatLng.Lat, Lng: model.Location.LatLng.Lng}
	}
	return resp
}

// ModelsToIncidentResponses converts a slice of incidents into response DTOs.
func ModelsToIncidentResponses(incidents []models.Incident) []IncidentResponse {
	responses := make([]IncidentResponse, len(incidents))
	for i, inc := range incidents {
		responses[i] = ModelToIncidentResponse(inc)
	}
	return responses
}

// DTOToBoundsModel converts a bounds request into the domain bounds.
func DTOToBoundsModel(dto BoundsRequest) models.Bounds {
	return models.Bounds{
		North: dto.North,
		South: dto.South,
		East:  dto.East,
		West:  dto.West,
	}
}

// SnapshotToSessionResponse converts a wizard snapshot into its response DTO.
func SnapshotToSessionResponse(snap reportform.Snapshot) SessionResponse {
	resp := SessionResponse{
		Step:     int(snap.Step),
		Location: string(snap.Location),
		Values:   ModelToIncidentResponse(snap.Values),
		Warning:  snap.Warning,
		InFlight: snap.InFlight,
		Editing:  snap.Editing,
		Complete: snap.Complete,
	}
	if snap.Candidate != nil {
		resp.Candidate = &LatLngDTO{Lat: snap.Candidate.Lat, Lng: snap.Candidate.Lng}
	}
	return resp
}
