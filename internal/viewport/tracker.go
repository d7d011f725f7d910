package viewport

import (
	"sync"

	"github.com/JetsonAtWork/incident-triage/internal/models"
)

// bottomPadFraction expands the visible bounds southward by a fraction of
// their height, because the details panel overlays the bottom edge of the map.
const bottomPadFraction = 0.035

// Tracker derives the subset of incidents currently visible on the map from
// the full collection and the last settled map bounds. It holds no canonical
// state of its own; the derived list is recomputed wholesale on every change.
type Tracker struct {
	mu        sync.Mutex
	bounds    *models.Bounds
	incidents []models.Incident
	visible   []models.Incident
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// SetBounds records the bounds of a settled pan/zoom and recomputes the
// visible subset. Intermediate move frames should not be reported here.
func (t *Tracker) SetBounds(b models.Bounds) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bounds = &b
	t.recompute()
}

// Refresh replaces the source collection and recomputes the visible subset.
// Call it whenever the incident collection changes.
func (t *Tracker) Refresh(incidents []models.Incident) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.incidents = incidents
	t.recompute()
}

// Visible returns the incidents inside the current padded bounds, in source
// order. Before any bounds have been reported, nothing is visible.
func (t *Tracker) Visible() []models.Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Incident, len(t.visible))
	copy(out, t.visible)
	return out
}

// Bounds returns the last settled bounds, if any.
func (t *Tracker) Bounds() (models.Bounds, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bounds == nil {
		return models.Bounds{}, false
	}
	return *t.bounds, true
}

// recompute rebuilds the visible list from scratch, so no entry from a prior
// bounds can linger. Callers must hold mu.
func (t *Tracker) recompute() {
	t.visible = t.visible[:0]
	if t.bounds == nil {
		return
	}

	padded := *t.bounds
	padded.South -= padded.Height() * bottomPadFraction

	for _, inc := range t.incidents {
		if inc.Location.LatLng == nil {
			continue
		}
		if padded.Contains(*inc.Location.LatLng) {
			t.visible = append(t.visible, inc)
		}
	}
}
