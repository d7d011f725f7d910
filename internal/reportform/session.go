package reportform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/geocoder"
	"github.com/JetsonAtWork/incident-triage/internal/models"
)

// Step is the wizard step: address confirmation first, then details.
type Step int

const (
	StepAddress Step = iota
	StepDetails
)

// LocationState is the sub-state of the location inside the address step.
type LocationState string

const (
	// LocationUnset means no coordinate has been chosen yet.
	LocationUnset LocationState = "unset"
	// LocationPending means a candidate pin exists but the reporter has not
	// accepted it. Editing the address or moving the pin returns here.
	LocationPending LocationState = "pending"
	// LocationConfirmed means the pin was explicitly accepted; required to
	// advance to the details step.
	LocationConfirmed LocationState = "confirmed"
)

// Field identifies a details-step input. Updates go through this tagged enum
// so a malformed partial state cannot be spread into the form.
type Field string

const (
	FieldWitnessName   Field = "name"
	FieldPhoneNumber   Field = "phoneNumber"
	FieldEmergencyDesc Field = "emergencyDesc"
	FieldComments      Field = "comments"
)

var (
	ErrWrongStep          = errors.New("operation not valid in the current step")
	ErrNoCandidate        = errors.New("no candidate pin to confirm")
	ErrUnconfirmed        = errors.New("location must be confirmed before continuing")
	ErrForwardNavigation  = errors.New("stepper can only navigate backward")
	ErrUnknownField       = errors.New("unknown form field")
	ErrSessionComplete    = errors.New("report session already submitted")
	errPositionChanged    = "Location changed. Please confirm that the address entered is still accurate"
	errAddressLookup      = "There was an issue finding that address on the map. Please enter another address or click the location of the incident on the map"
)

// Session is one run of the report wizard. It owns all uncommitted input;
// cancelling the session discards everything. Safe for concurrent use: UI
// events and geocode responses may arrive on different goroutines.
type Session struct {
	geocoder   geocoder.Geocoder
	logger     *logrus.Logger
	clock      clockwork.Clock
	maxResults int

	mu        sync.Mutex
	step      Step
	locState  LocationState
	editing   bool
	values    models.Incident
	candidate *models.LatLng
	warning   string
	complete  bool

	// lookupSeq identifies the newest address lookup. A response whose
	// sequence is no longer current is inert: submitting a new query
	// supersedes the in-flight one without an explicit cancel.
	lookupSeq uint64
	inFlight  bool
}

// NewSession starts a blank report. The incident date is fixed at the moment
// the form opens, matching what the reporter sees in the dialog.
func NewSession(g geocoder.Geocoder, logger *logrus.Logger, clock clockwork.Clock, maxResults int) *Session {
	return &Session{
		geocoder:   g,
		logger:     logger,
		clock:      clock,
		maxResults: maxResults,
		step:       StepAddress,
		locState:   LocationUnset,
		values: models.Incident{
			Date:   clock.Now(),
			Status: models.StatusOpen,
		},
	}
}

// NewEditSession starts the wizard preloaded from an existing incident. Its
// location was confirmed when the incident was first filed, so the session
// begins confirmed; moving the pin re-requires confirmation as usual.
func NewEditSession(incident models.Incident, g geocoder.Geocoder, logger *logrus.Logger, clock clockwork.Clock, maxResults int) *Session {
	s := &Session{
		geocoder:   g,
		logger:     logger,
		clock:      clock,
		maxResults: maxResults,
		step:       StepAddress,
		locState:   LocationUnset,
		editing:    true,
		values:     incident,
	}
	if incident.Location.LatLng != nil {
		ll := *incident.Location.LatLng
		s.candidate = &ll
		s.locState = LocationConfirmed
	}
	return s
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	Step      Step
	Location  LocationState
	Values    models.Incident
	Candidate *models.LatLng
	Warning   string
	InFlight  bool
	Editing   bool
	Complete  bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Step:     s.step,
		Location: s.locState,
		Values:   s.values,
		Warning:  s.warning,
		InFlight: s.inFlight,
		Editing:  s.editing,
		Complete: s.complete,
	}
	if s.candidate != nil {
		ll := *s.candidate
		snap.Candidate = &ll
	}
	return snap
}

// SubmitAddress geocodes a free-text address. On success the top-ranked
// candidate becomes the pending pin. On no-result or lookup failure the
// session state is untouched and the returned error is user-facing and
// retryable. A response from a superseded query is dropped.
func (s *Session) SubmitAddress(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return ErrSessionComplete
	}
	if s.step != StepAddress {
		s.mu.Unlock()
		return ErrWrongStep
	}
	s.lookupSeq++
	seq := s.lookupSeq
	s.inFlight = true
	s.warning = ""
	s.mu.Unlock()

	// The lookup runs outside the lock so a newer query or a map click is
	// never blocked behind a slow provider.
	results, err := s.geocoder.Search(ctx, query, s.maxResults)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.lookupSeq {
		// Superseded while in flight; the result is inert either way.
		s.logger.WithField("query", query).Debug("Discarding stale address lookup response")
		return nil
	}
	s.inFlight = false

	if err != nil || len(results) == 0 {
		if err == nil {
			err = geocoder.ErrNoResults
		}
		s.logger.WithError(err).WithField("query", query).Warn("Address lookup failed")
		return fmt.Errorf("%s: %w", errAddressLookup, err)
	}

	top := results[0]
	s.candidate = &models.LatLng{Lat: top.Lat, Lng: top.Lon}
	s.values.Location.Address = query
	s.values.Location.Name = top.Name
	s.locState = LocationPending
	return nil
}

// PlacePin handles a map click or a pin drag: the candidate moves and the
// position must be (re-)confirmed. If an address was already entered, a
// non-blocking warning asks the reporter to re-check it.
func (s *Session) PlacePin(ll models.LatLng) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}
	if s.step != StepAddress {
		return ErrWrongStep
	}

	// A pin moved under an in-flight lookup supersedes it.
	s.lookupSeq++
	s.inFlight = false

	if s.values.Location.Address != "" {
		s.warning = errPositionChanged
	}
	s.candidate = &ll
	s.locState = LocationPending
	return nil
}

// ConfirmPin accepts the candidate position, enabling Continue.
func (s *Session) ConfirmPin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}
	if s.candidate == nil {
		return ErrNoCandidate
	}
	s.locState = LocationConfirmed
	s.warning = ""
	return nil
}

// DenyPin rejects the candidate and resets the whole address: coordinate,
// display name and address text are all cleared.
func (s *Session) DenyPin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}
	s.lookupSeq++
	s.inFlight = false
	s.candidate = nil
	s.values.Location.Address = ""
	s.values.Location.Name = ""
	s.locState = LocationUnset
	s.warning = ""
	return nil
}

// Continue advances to the details step. Only a confirmed location may pass.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}
	if s.step != StepAddress {
		return ErrWrongStep
	}
	if s.locState != LocationConfirmed {
		return ErrUnconfirmed
	}
	s.step = StepDetails
	return nil
}

// Back navigates to an earlier step. Forward navigation goes through
// Continue/Submit only.
func (s *Session) Back(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}
	if step >= s.step {
		return ErrForwardNavigation
	}
	s.step = step
	return nil
}

// SetField applies one typed field update. Phone input keeps digits only,
// as the original form stripped other characters while typing.
func (s *Session) SetField(field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return ErrSessionComplete
	}

	switch field {
	case FieldWitnessName:
		s.values.Person.Name = value
	case FieldPhoneNumber:
		s.values.Person.PhoneNumber = digitsOnly(value)
	case FieldEmergencyDesc:
		s.values.EmergencyDesc = value
	case FieldComments:
		s.values.Comments = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// AttachPicture converts an uploaded file to a self-contained data URI so the
// picture survives inside the single stored JSON entry. A failed read is
// logged and the form simply proceeds without a picture.
func (s *Session) AttachPicture(filename string, data []byte) {
	uri, err := encodePicture(data)
	if err != nil {
		s.logger.WithError(err).WithField("filename", filename).Warn("Failed to attach picture, continuing without it")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.PictureLink = uri
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
