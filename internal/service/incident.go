package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/observability"
)

var (
	// ErrNotFound is returned when an operation references an unknown incident id.
	ErrNotFound = errors.New("incident not found")
	// ErrDuplicateID is returned when an incident id has already been used,
	// including ids of incidents that were deleted since.
	ErrDuplicateID = errors.New("incident id already used")
	// ErrInvalidStatus is returned for a status outside {open, resolved}.
	ErrInvalidStatus = errors.New("invalid incident status")
)

// IncidentStorage is the durable home of the incident collection: one keyed
// entry holding the whole serialized array, rewritten on every mutation.
type IncidentStorage interface {
	Load(ctx context.Context) ([]models.Incident, error)
	Save(ctx context.Context, incidents []models.Incident) error
}

// IncidentService is the single source of truth for incidents and the
// cross-cutting selection shared by the map, list and details panel.
type IncidentService interface {
	Load(ctx context.Context)
	Add(ctx context.Context, incident models.Incident) error
	Modify(ctx context.Context, incident models.Incident) error
	SetStatus(ctx context.Context, id string, status models.IncidentStatus) error
	Delete(ctx context.Context, id string)
	List(ctx context.Context) []models.Incident
	Get(ctx context.Context, id string) (models.Incident, error)

	Select(id string) (models.Incident, error)
	ClearSelection()
	Selected() (models.Incident, bool)
}

type incidentService struct {
	storage IncidentStorage
	logger  *logrus.Logger
	metrics *observability.Metrics

	// All mutation happens under mu so each read-modify-persist cycle is
	// atomic relative to the others.
	mu        sync.Mutex
	incidents []models.Incident
	usedIDs   map[string]struct{}
	selected  string
	hasSel    bool
}

func NewIncidentService(storage IncidentStorage, logger *logrus.Logger, metrics *observability.Metrics) IncidentService {
	return &incidentService{
		storage:   storage,
		logger:    logger,
		metrics:   metrics,
		incidents: []models.Incident{},
		usedIDs:   make(map[string]struct{}),
	}
}

// Load initializes the collection from durable storage. A missing or corrupt
// entry must never take the dashboard down, so any failure falls back to an
// empty collection with a warning.
func (s *incidentService) Load(ctx context.Context) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Load",
	})

	incidents, err := s.storage.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load persisted incidents, starting with an empty collection")
		incidents = []models.Incident{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = incidents
	for _, inc := range incidents {
		s.usedIDs[inc.ID] = struct{}{}
	}
	log.WithField("count", len(incidents)).Info("Incident collection loaded")
}

// Add appends one incident and persists the updated collection. The id must
// never have been used before, even by a since-deleted incident.
func (s *incidentService) Add(ctx context.Context, incident models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Add",
		"incident_id": incident.ID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.usedIDs[incident.ID]; used {
		log.Warn("Rejected incident with a previously used id")
		return fmt.Errorf("service: could not add incident %s: %w", incident.ID, ErrDuplicateID)
	}

	s.incidents = append(s.incidents, incident)
	s.usedIDs[incident.ID] = struct{}{}
	s.metrics.IncidentsCreated.Inc()
	s.persist(ctx, log)

	log.Info("Incident added")
	return nil
}

// Modify replaces the incident with a matching id in place. ID, Date and
// Status of the stored incident are preserved unless the caller explicitly
// changed them.
func (s *incidentService) Modify(ctx context.Context, incident models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Modify",
		"incident_id": incident.ID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(incident.ID)
	if idx < 0 {
		log.Warn("Attempted to modify a non-existent incident")
		return fmt.Errorf("service: incident %s not found for modify: %w", incident.ID, ErrNotFound)
	}

	existing := s.incidents[idx]
	if incident.Status == "" {
		incident.Status = existing.Status
	}
	if incident.Date.IsZero() {
		incident.Date = existing.Date
	}
	s.incidents[idx] = incident
	s.persist(ctx, log)

	log.Info("Incident modified")
	return nil
}

// SetStatus transitions an incident between open and resolved. Setting the
// current status again is a no-op and does not rewrite storage.
func (s *incidentService) SetStatus(ctx context.Context, id string, status models.IncidentStatus) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "SetStatus",
		"incident_id": id,
		"status":      status,
	})

	if !status.Valid() {
		return fmt.Errorf("service: status %q: %w", status, ErrInvalidStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		log.Warn("Attempted to set status on a non-existent incident")
		return fmt.Errorf("service: incident %s not found for status change: %w", id, ErrNotFound)
	}

	if s.incidents[idx].Status == status {
		log.Debug("Status unchanged, skipping persist")
		return nil
	}

	s.incidents[idx].Status = status
	if status == models.StatusResolved {
		s.metrics.IncidentsResolved.Inc()
	} else {
		s.metrics.IncidentsReopened.Inc()
	}
	s.persist(ctx, log)

	log.Info("Incident status updated")
	return nil
}

// Delete removes an incident and persists. Deleting the selected incident
// clears the selection. An unknown id is a logged no-op: fail loudly enough
// for a developer to notice, but never crash the dashboard.
func (s *incidentService) Delete(ctx context.Context, id string) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Delete",
		"incident_id": id,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		log.Error("Attempted to delete a non-existent incident")
		return
	}

	s.incidents = append(s.incidents[:idx], s.incidents[idx+1:]...)
	if s.hasSel && s.selected == id {
		s.hasSel = false
		s.selected = ""
	}
	s.metrics.IncidentsDeleted.Inc()
	s.persist(ctx, log)

	log.Info("Incident deleted")
}

// List returns a copy of the canonical collection, in insertion order.
func (s *incidentService) List(ctx context.Context) []models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

func (s *incidentService) Get(ctx context.Context, id string) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Incident{}, fmt.Errorf("service: incident %s: %w", id, ErrNotFound)
	}
	return s.incidents[idx], nil
}

// Select marks an incident as the current one and returns it so the caller
// can pan the map to its coordinate.
func (s *incidentService) Select(id string) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Incident{}, fmt.Errorf("service: incident %s not found for select: %w", id, ErrNotFound)
	}
	s.selected = id
	s.hasSel = true
	return s.incidents[idx], nil
}

func (s *incidentService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
	s.hasSel = false
}

func (s *incidentService) Selected() (models.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSel {
		return models.Incident{}, false
	}
	idx := s.indexOf(s.selected)
	if idx < 0 {
		return models.Incident{}, false
	}
	return s.incidents[idx], true
}

// persist rewrites the whole collection. A failed write keeps the in-memory
// state authoritative for this session; it is logged and counted, never fatal.
// Callers must hold mu.
func (s *incidentService) persist(ctx context.Context, log *logrus.Entry) {
	if err := s.storage.Save(ctx, s.incidents); err != nil {
		s.metrics.StoreWriteFailures.Inc()
		log.WithError(err).Warn("Failed to persist incident collection; in-memory state retained")
	}
}

// indexOf returns the position of id in the collection, or -1. Callers must hold mu.
func (s *incidentService) indexOf(id string) int {
	for i, inc := range s.incidents {
		if inc.ID == id {
			return i
		}
	}
	return -1
}
