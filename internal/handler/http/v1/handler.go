package v1

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/config"
	"github.com/JetsonAtWork/incident-triage/internal/listview"
	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/reportform"
	"github.com/JetsonAtWork/incident-triage/internal/service"
	"github.com/JetsonAtWork/incident-triage/internal/viewport"
)

type Handler struct {
	incidentService service.IncidentService
	reports         *reportform.Manager
	tracker         *viewport.Tracker
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config

	// view is the shared filter/sort state of the incident table. The
	// dashboard has exactly one table, so one view.
	viewMu sync.Mutex
	view   *listview.View
}

func NewHandler(incidentService service.IncidentService, reports *reportform.Manager, tracker *viewport.Tracker, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		reports:         reports,
		tracker:         tracker,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
		view:            listview.NewView(),
	}
}

// refreshVisible re-derives the map's visible subset after any change to the
// incident collection.
func (h *Handler) refreshVisible(c *gin.Context) {
	h.tracker.Refresh(h.incidentService.List(c.Request.Context()))
}

// @Summary List incidents
// @Description Get the incident table: filtered, scoped and sorted. Passing sort_by without sort_dir acts as a header click and toggles the active column.
// @Tags Incidents
// @Produce json
// @Param filter query string false "Typo-tolerant text filter"
// @Param scope query string false "all or visible" default(all)
// @Param sort_by query string false "type, location, reported or status"
// @Param sort_dir query string false "asc or desc"
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Unknown scope, column or direction"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	h.viewMu.Lock()
	defer h.viewMu.Unlock()

	if filter, ok := c.GetQuery("filter"); ok {
		h.view.Filter = filter
	}
	if scope, ok := c.GetQuery("scope"); ok {
		switch listview.Scope(scope) {
		case listview.ScopeAll, listview.ScopeVisible:
			h.view.Scope = listview.Scope(scope)
		default:
			log.WithField("scope", scope).Warn("Unknown list scope")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scope"})
			return
		}
	}
	if column, ok := c.GetQuery("sort_by"); ok {
		switch listview.SortColumn(column) {
		case listview.SortByType, listview.SortByLocation, listview.SortByReported, listview.SortByStatus:
		default:
			log.WithField("sort_by", column).Warn("Unknown sort column")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort column"})
			return
		}
		if dir, ok := c.GetQuery("sort_dir"); ok {
			switch listview.SortDirection(dir) {
			case listview.Ascending, listview.Descending:
				h.view.Column = listview.SortColumn(column)
				h.view.Direction = listview.SortDirection(dir)
			default:
				log.WithField("sort_dir", dir).Warn("Unknown sort direction")
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort direction"})
				return
			}
		} else {
			h.view.SetSort(listview.SortColumn(column))
		}
	}

	base := h.incidentService.List(c.Request.Context())
	if h.view.Scope == listview.ScopeVisible {
		base = h.tracker.Visible()
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(h.view.Project(base)))
}

// @Summary Clear list filters
// @Description Reset filter text, scope and sort order to the defaults.
// @Tags Incidents
// @Success 204 "No Content"
// @Router /incidents/filters [delete]
func (h *Handler) clearFilters(c *gin.Context) {
	h.viewMu.Lock()
	h.view.ClearFilters()
	h.viewMu.Unlock()
	c.Status(http.StatusNoContent)
}

// @Summary Get incident by ID
// @Description Get a single incident for the details panel.
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.Get(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Set incident status
// @Description Transition an incident between open and resolved. Requires staff token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security StaffToken
// @Param id path string true "Incident ID"
// @Param status body SetStatusRequest true "New status"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or status"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/status [patch]
func (h *Handler) setStatus(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "setStatus").WithField("id", id)

	var input SetStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.incidentService.SetStatus(c.Request.Context(), id, models.IncidentStatus(input.Status))
	if err != nil {
		log.WithError(err).Warn("Failed to set incident status in service")
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	h.refreshVisible(c)
	incident, err := h.incidentService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Delete an incident
// @Description Remove an incident from the collection. Deleting an unknown id is a no-op. Requires staff token.
// @Tags Incidents
// @Security StaffToken
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id := c.Param("id")

	h.incidentService.Delete(c.Request.Context(), id)
	h.refreshVisible(c)
	c.Status(http.StatusNoContent)
}

// @Summary Report map viewport
// @Description Record the map bounds after a settled pan or zoom and get back the visible incidents.
// @Tags Map
// @Accept json
// @Produce json
// @Param bounds body BoundsRequest true "Settled map bounds"
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid bounds"
// @Router /viewport [post]
func (h *Handler) setViewport(c *gin.Context) {
	var input BoundsRequest
	log := h.logger.WithField("method", "setViewport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.North < input.South {
		log.Warn("Rejected inverted bounds")
		c.JSON(http.StatusBadRequest, gin.H{"error": "north must not be south of south"})
		return
	}

	h.tracker.Refresh(h.incidentService.List(c.Request.Context()))
	h.tracker.SetBounds(DTOToBoundsModel(input))
	c.JSON(http.StatusOK, ModelsToIncidentResponses(h.tracker.Visible()))
}

// @Summary Select an incident
// @Description Mark an incident as the current one. The response carries its coordinate so the map can pan to it.
// @Tags Selection
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /selection/{id} [put]
func (h *Handler) selectIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "selectIncident").WithField("id", id)

	incident, err := h.incidentService.Select(id)
	if err != nil {
		log.WithError(err).Warn("Failed to select incident")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Clear the selection
// @Tags Selection
// @Success 204 "No Content"
// @Router /selection [delete]
func (h *Handler) clearSelection(c *gin.Context) {
	h.incidentService.ClearSelection()
	c.Status(http.StatusNoContent)
}

// @Summary Get the selected incident
// @Tags Selection
// @Produce json
// @Success 200 {object} IncidentResponse
// @Success 204 "Nothing selected"
// @Router /selection [get]
func (h *Handler) getSelection(c *gin.Context) {
	incident, ok := h.incidentService.Selected()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Open a report session
// @Description Start a blank report wizard session.
// @Tags Reports
// @Produce json
// @Success 201 {object} CreateReportResponse
// @Router /reports [post]
func (h *Handler) createReport(c *gin.Context) {
	id, s := h.reports.Create()
	h.logger.WithField("method", "createReport").WithField("session_id", id).Info("Report session opened")
	c.JSON(http.StatusCreated, CreateReportResponse{
		SessionID: id,
		Session:   SnapshotToSessionResponse(s.Snapshot()),
	})
}

// @Summary Open an edit session
// @Description Start a report wizard session preloaded from an existing incident. Requires staff token.
// @Tags Reports
// @Produce json
// @Security StaffToken
// @Param id path string true "Incident ID"
// @Success 201 {object} CreateReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/report [post]
func (h *Handler) editReport(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "editReport").WithField("id", id)

	incident, err := h.incidentService.Get(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident for editing")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}

	sid, s := h.reports.CreateEdit(incident)
	log.WithField("session_id", sid).Info("Edit session opened")
	c.JSON(http.StatusCreated, CreateReportResponse{
		SessionID: sid,
		Session:   SnapshotToSessionResponse(s.Snapshot()),
	})
}

// reportSession resolves the session path parameter, answering 404 when the
// session does not exist or was already closed.
func (h *Handler) reportSession(c *gin.Context) (*reportform.Session, bool) {
	s, ok := h.reports.Get(c.Param("sid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report session not found"})
		return nil, false
	}
	return s, true
}

// sessionError maps wizard state violations to client errors. None of them
// may take the process down; the session stays usable.
func (h *Handler) sessionError(c *gin.Context, log *logrus.Entry, err error) {
	log.WithError(err).Warn("Report session operation rejected")
	switch {
	case errors.Is(err, reportform.ErrUnknownField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, reportform.ErrWrongStep),
		errors.Is(err, reportform.ErrNoCandidate),
		errors.Is(err, reportform.ErrUnconfirmed),
		errors.Is(err, reportform.ErrForwardNavigation),
		errors.Is(err, reportform.ErrSessionComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// An address lookup failure is retryable; surface the user-facing text.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// @Summary Get report session state
// @Tags Reports
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Router /reports/{sid} [get]
func (h *Handler) getReport(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Submit an address
// @Description Geocode a free-text address. The top candidate becomes the pending pin.
// @Tags Reports
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param address body AddressRequest true "Free-text address"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Not in the address step"
// @Failure 502 {object} map[string]string "Address lookup failed, retry or click the map"
// @Router /reports/{sid}/address [post]
func (h *Handler) submitAddress(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "submitAddress")

	var input AddressRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.SubmitAddress(c.Request.Context(), input.Address); err != nil {
		h.sessionError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Place the pin
// @Description Handle a map click or pin drag. The position must be confirmed afterwards.
// @Tags Reports
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param position body PinRequest true "Pin position"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Not in the address step"
// @Router /reports/{sid}/pin [post]
func (h *Handler) placePin(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "placePin")

	var input PinRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.PlacePin(models.LatLng{Lat: input.Lat, Lng: input.Lng}); err != nil {
		h.sessionError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Confirm the pin
// @Tags Reports
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "No candidate pin"
// @Router /reports/{sid}/pin/confirm [post]
func (h *Handler) confirmPin(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	if err := s.ConfirmPin(); err != nil {
		h.sessionError(c, h.logger.WithField("method", "confirmPin"), err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Reject the pin
// @Description Reject the candidate position, clearing the pin and the entered address.
// @Tags Reports
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Router /reports/{sid}/pin [delete]
func (h *Handler) denyPin(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	if err := s.DenyPin(); err != nil {
		h.sessionError(c, h.logger.WithField("method", "denyPin"), err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Continue to details
// @Description Advance to the details step. Only a confirmed location may pass.
// @Tags Reports
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Location not confirmed"
// @Router /reports/{sid}/continue [post]
func (h *Handler) continueReport(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	if err := s.Continue(); err != nil {
		h.sessionError(c, h.logger.WithField("method", "continueReport"), err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Navigate back
// @Description Navigate the stepper to an earlier step. Forward navigation is rejected.
// @Tags Reports
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param step body BackRequest true "Target step"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Forward navigation"
// @Router /reports/{sid}/back [post]
func (h *Handler) backReport(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "backReport")

	var input BackRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.Back(reportform.Step(input.Step)); err != nil {
		h.sessionError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Update a form field
// @Description Apply one typed details-step field update.
// @Tags Reports
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param field body FieldRequest true "Field update"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Invalid request body or unknown field"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /reports/{sid}/fields [put]
func (h *Handler) setReportField(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "setReportField")

	var input FieldRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.SetField(reportform.Field(input.Field), input.Value); err != nil {
		h.sessionError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Attach a picture
// @Description Upload a picture file to embed in the report. A failed read is logged and the form proceeds without a picture.
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param sid path string true "Session ID"
// @Param picture formData file true "Picture file"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Missing file"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /reports/{sid}/picture [post]
func (h *Handler) uploadPicture(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "uploadPicture")

	fileHeader, err := c.FormFile("picture")
	if err != nil {
		log.WithError(err).Warn("Missing picture file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "picture file required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.WithError(err).Warn("Failed to open uploaded picture")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read picture file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.WithError(err).Warn("Failed to read uploaded picture")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read picture file"})
		return
	}

	s.AttachPicture(fileHeader.Filename, data)
	c.JSON(http.StatusOK, SnapshotToSessionResponse(s.Snapshot()))
}

// @Summary Submit the report
// @Description Validate the whole form and commit the incident. Violations return per-field messages and keep the session open.
// @Tags Reports
// @Produce json
// @Param sid path string true "Session ID"
// @Success 201 {object} SubmitResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Session already submitted"
// @Failure 422 {object} FieldErrorsResponse "Validation failed"
// @Failure 500 {object} map[string]string "Commit failed"
// @Router /reports/{sid}/submit [post]
func (h *Handler) submitReport(c *gin.Context) {
	s, ok := h.reportSession(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "submitReport").WithField("session_id", c.Param("sid"))

	incident, fieldErrors, err := s.Submit(c.Request.Context(), h.incidentService)
	if err != nil {
		if errors.Is(err, reportform.ErrSessionComplete) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("Failed to commit report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if len(fieldErrors) > 0 {
		log.WithField("fields", len(fieldErrors)).Info("Report submission rejected by validation")
		c.JSON(http.StatusUnprocessableEntity, FieldErrorsResponse{FieldErrors: fieldErrors})
		return
	}

	h.reports.Remove(c.Param("sid"))
	h.refreshVisible(c)
	log.WithField("incident_id", incident.ID).Info("Report submitted")
	c.JSON(http.StatusCreated, SubmitResponse{Incident: ModelToIncidentResponse(incident)})
}

// @Summary Cancel a report session
// @Description Close the wizard, discarding all uncommitted input.
// @Tags Reports
// @Param sid path string true "Session ID"
// @Success 204 "No Content"
// @Router /reports/{sid} [delete]
func (h *Handler) cancelReport(c *gin.Context) {
	h.reports.Remove(c.Param("sid"))
	c.Status(http.StatusNoContent)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
