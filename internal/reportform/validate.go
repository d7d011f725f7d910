package reportform

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/service"
)

// Field-level error messages shown next to the violating input.
const (
	msgRequired     = "Required"
	msgInvalidPhone = "Invalid Phone Number"
	msgUnconfirmed  = "Please confirm the pin position on the map"
	msgNoCoordinate = "Please choose a location on the map"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// A phone number is valid with exactly 10 or 11 digits. SetField already
	// stripped everything that is not a digit.
	_ = v.RegisterValidation("phonedigits", func(fl validator.FieldLevel) bool {
		l := len(fl.Field().String())
		return l == 10 || l == 11
	})
	return v
}

// submission is the shape the validator checks on Submit.
type submission struct {
	Name          string `validate:"required"`
	PhoneNumber   string `validate:"required,phonedigits"`
	EmergencyDesc string `validate:"required"`
	Address       string `validate:"required"`
}

// Submit validates the whole form and, on success, commits the incident to
// the store: Modify when editing an existing incident, Add with a fresh
// unique id otherwise. The committed incident becomes the selection. Any
// violation returns the per-field messages and leaves the session open.
func (s *Session) Submit(ctx context.Context, incidents service.IncidentService) (models.Incident, map[string]string, error) {
	s.mu.Lock()

	if s.complete {
		s.mu.Unlock()
		return models.Incident{}, nil, ErrSessionComplete
	}

	fieldErrors := s.validateLocked()
	if len(fieldErrors) > 0 {
		s.mu.Unlock()
		return models.Incident{}, fieldErrors, nil
	}

	incident := s.values
	ll := *s.candidate
	incident.Location.LatLng = &ll
	if !s.editing {
		incident.ID = uuid.NewString()
		incident.Status = models.StatusOpen
	}
	editing := s.editing
	s.mu.Unlock()

	var err error
	if editing {
		err = incidents.Modify(ctx, incident)
	} else {
		err = incidents.Add(ctx, incident)
	}
	if err != nil {
		return models.Incident{}, nil, fmt.Errorf("failed to commit report: %w", err)
	}

	if _, err := incidents.Select(incident.ID); err != nil {
		// Selection is a convenience; a failure here must not undo the report.
		s.logger.WithError(err).WithField("incident_id", incident.ID).Warn("Failed to select submitted incident")
	}

	s.mu.Lock()
	s.complete = true
	s.mu.Unlock()
	return incident, nil, nil
}

// validateLocked checks every submission rule and collects one distinct
// message per violated field. Callers must hold mu.
func (s *Session) validateLocked() map[string]string {
	fieldErrors := make(map[string]string)

	sub := submission{
		Name:          s.values.Person.Name,
		PhoneNumber:   s.values.Person.PhoneNumber,
		EmergencyDesc: s.values.EmergencyDesc,
		Address:       s.values.Location.Address,
	}
	if err := validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.StructField() {
				case "Name":
					fieldErrors[string(FieldWitnessName)] = msgRequired
				case "PhoneNumber":
					if fe.Tag() == "required" {
						fieldErrors[string(FieldPhoneNumber)] = msgRequired
					} else {
						fieldErrors[string(FieldPhoneNumber)] = msgInvalidPhone
					}
				case "EmergencyDesc":
					fieldErrors[string(FieldEmergencyDesc)] = msgRequired
				case "Address":
					fieldErrors["address"] = msgRequired
				}
			}
		}
	}

	if s.locState != LocationConfirmed {
		fieldErrors["addressConfirmed"] = msgUnconfirmed
	}
	if s.candidate == nil {
		fieldErrors["location"] = msgNoCoordinate
	}
	return fieldErrors
}
