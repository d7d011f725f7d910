package reportform

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/geocoder"
	"github.com/JetsonAtWork/incident-triage/internal/models"
)

// Manager tracks live wizard sessions by id. A session exists from dialog
// open until submit or cancel; nothing about it is ever persisted.
type Manager struct {
	geocoder   geocoder.Geocoder
	logger     *logrus.Logger
	clock      clockwork.Clock
	maxResults int

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(g geocoder.Geocoder, logger *logrus.Logger, clock clockwork.Clock, maxResults int) *Manager {
	return &Manager{
		geocoder:   g,
		logger:     logger,
		clock:      clock,
		maxResults: maxResults,
		sessions:   make(map[string]*Session),
	}
}

// Create opens a blank report session.
func (m *Manager) Create() (string, *Session) {
	s := NewSession(m.geocoder, m.logger, m.clock, m.maxResults)
	return m.track(s)
}

// CreateEdit opens a session preloaded from an existing incident.
func (m *Manager) CreateEdit(incident models.Incident) (string, *Session) {
	s := NewEditSession(incident, m.geocoder, m.logger, m.clock, m.maxResults)
	return m.track(s)
}

func (m *Manager) track(s *Session) (string, *Session) {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return id, s
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session, discarding any uncommitted input.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
