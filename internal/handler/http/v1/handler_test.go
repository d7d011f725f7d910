package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JetsonAtWork/incident-triage/internal/config"
	"github.com/JetsonAtWork/incident-triage/internal/geocoder"
	geocoder_mocks "github.com/JetsonAtWork/incident-triage/internal/geocoder/mocks"
	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/reportform"
	"github.com/JetsonAtWork/incident-triage/internal/service"
	"github.com/JetsonAtWork/incident-triage/internal/service/mocks"
	"github.com/JetsonAtWork/incident-triage/internal/viewport"

	"github.com/jonboulle/clockwork"
)

const testPassword = "test-password"

// newTestHandler wires a Handler over a mocked service and geocoder with a
// real viewport tracker and report session manager.
func newTestHandler(t *testing.T) (*mocks.MockIncidentService, *geocoder_mocks.MockGeocoder, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)
	mockGeocoder := geocoder_mocks.NewMockGeocoder(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		AdminPasswordHash: hashPassword(testPassword),
	}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 11, 12, 9, 30, 0, 0, time.UTC))
	reports := reportform.NewManager(mockGeocoder, logger, clock, 5)
	tracker := viewport.NewTracker()
	handler := NewHandler(mockService, reports, tracker, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return mockService, mockGeocoder, router
}

func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func staffHeaders() map[string]string {
	return map[string]string{"X-Staff-Token": hashPassword(testPassword)}
}

func testIncident(id string, desc string, lat, lng float64) models.Incident {
	return models.Incident{
		ID:            id,
		Date:          time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC),
		Status:        models.StatusOpen,
		Person:        models.Witness{Name: "Jane Doe", PhoneNumber: "6041234567"},
		EmergencyDesc: desc,
		Location: models.Location{
			Address: "123 Main St",
			LatLng:  &models.LatLng{Lat: lat, Lng: lng},
		},
	}
}

func TestLogin_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	bodyBytes, _ := json.Marshal(LoginRequest{Password: testPassword})
	w := makeRequest(router, "POST", "/api/v1/auth/login", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, hashPassword(testPassword), resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	_, _, router := newTestHandler(t)

	bodyBytes, _ := json.Marshal(LoginRequest{Password: "letmein"})
	w := makeRequest(router, "POST", "/api/v1/auth/login", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "wrong password")
}

func TestLogin_MissingPassword(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "POST", "/api/v1/auth/login", bytes.NewBufferString(`{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffAuthMiddleware_MissingToken(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().SetStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(SetStatusRequest{Status: "resolved"})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/abc/status", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "staff token required")
}

func TestStaffAuthMiddleware_InvalidToken(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/abc", nil, map[string]string{"X-Staff-Token": "bogus"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid staff token")
}

func TestListIncidents_DefaultNewestFirst(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	older := testIncident("id-1", "Flood", 49.2, -123.0)
	newer := testIncident("id-2", "Fire", 49.3, -123.1)
	newer.Date = older.Date.Add(time.Hour)

	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{older, newer}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "id-2", resp[0].ID)
	assert.Equal(t, "id-1", resp[1].ID)
}

func TestListIncidents_TypoTolerantFilter(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	fire := testIncident("id-1", "Fire at Metrotown", 49.2, -123.0)
	flood := testIncident("id-2", "Flood", 49.3, -123.1)

	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{fire, flood}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?filter=Metrotwon", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "id-1", resp[0].ID)
}

func TestListIncidents_UnknownScope(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/incidents?scope=nearby", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown scope")
}

func TestListIncidents_VisibleScopeFollowsViewport(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	inside := testIncident("id-in", "Fire", 49.25, -123.0)
	outside := testIncident("id-out", "Flood", 10.0, 10.0)

	// One List for the viewport refresh, one for the list projection.
	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{inside, outside}).Times(2)

	bounds, _ := json.Marshal(BoundsRequest{North: 49.3, South: 49.2, East: -122.9, West: -123.1})
	w := makeRequest(router, "POST", "/api/v1/viewport", bytes.NewBuffer(bounds))
	require.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "GET", "/api/v1/incidents?scope=visible", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "id-in", resp[0].ID)
}

func TestClearFilters_ResetsListState(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	fire := testIncident("id-1", "Fire", 49.2, -123.0)
	flood := testIncident("id-2", "Flood", 49.3, -123.1)

	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{fire, flood}).Times(2)

	w := makeRequest(router, "GET", "/api/v1/incidents?filter=Fire", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)

	w = makeRequest(router, "DELETE", "/api/v1/incidents/filters", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = makeRequest(router, "GET", "/api/v1/incidents", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestGetIncident_NotFound(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().
		Get(gomock.Any(), "missing").
		Return(models.Incident{}, service.ErrNotFound).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "incident not found")
}

func TestSetStatus_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	resolved := testIncident("id-1", "Fire", 49.2, -123.0)
	resolved.Status = models.StatusResolved

	mockService.EXPECT().
		SetStatus(gomock.Any(), "id-1", models.StatusResolved).
		Return(nil).
		Times(1)
	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{resolved}).Times(1)
	mockService.EXPECT().Get(gomock.Any(), "id-1").Return(resolved, nil).Times(1)

	bodyBytes, _ := json.Marshal(SetStatusRequest{Status: "resolved"})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/id-1/status", bytes.NewBuffer(bodyBytes), staffHeaders())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "resolved", resp.Status)
}

func TestSetStatus_UnknownStatusRejected(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().SetStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(SetStatusRequest{Status: "archived"})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/id-1/status", bytes.NewBuffer(bodyBytes), staffHeaders())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetStatus_NotFound(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().
		SetStatus(gomock.Any(), "missing", models.StatusResolved).
		Return(fmt.Errorf("service: %w", service.ErrNotFound)).
		Times(1)

	bodyBytes, _ := json.Marshal(SetStatusRequest{Status: "resolved"})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/missing/status", bytes.NewBuffer(bodyBytes), staffHeaders())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIncident_Success(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().Delete(gomock.Any(), "id-1").Times(1)
	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{}).Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/id-1", nil, staffHeaders())

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSetViewport_ReturnsVisibleSubset(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	inside := testIncident("id-in", "Fire", 49.25, -123.0)
	outside := testIncident("id-out", "Flood", 10.0, 10.0)

	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{inside, outside}).Times(1)

	bounds, _ := json.Marshal(BoundsRequest{North: 49.3, South: 49.2, East: -122.9, West: -123.1})
	w := makeRequest(router, "POST", "/api/v1/viewport", bytes.NewBuffer(bounds))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "id-in", resp[0].ID)
}

func TestSetViewport_InvertedBoundsRejected(t *testing.T) {
	_, _, router := newTestHandler(t)

	bounds, _ := json.Marshal(BoundsRequest{North: 49.2, South: 49.3, East: -122.9, West: -123.1})
	w := makeRequest(router, "POST", "/api/v1/viewport", bytes.NewBuffer(bounds))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectIncident_ReturnsPanTarget(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incident := testIncident("id-1", "Fire", 49.25, -123.0)

	mockService.EXPECT().Select("id-1").Return(incident, nil).Times(1)

	w := makeRequest(router, "PUT", "/api/v1/selection/id-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Location.LatLng)
	assert.Equal(t, 49.25, resp.Location.LatLng.Lat)
	assert.Equal(t, -123.0, resp.Location.LatLng.Lng)
}

func TestSelectIncident_NotFound(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().Select("missing").Return(models.Incident{}, service.ErrNotFound).Times(1)

	w := makeRequest(router, "PUT", "/api/v1/selection/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSelection_EmptyIsNoContent(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().Selected().Return(models.Incident{}, false).Times(1)

	w := makeRequest(router, "GET", "/api/v1/selection", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClearSelection(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().ClearSelection().Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/selection", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

// openReportSession drives the create route and returns the session id.
func openReportSession(t *testing.T, router *gin.Engine) string {
	w := makeRequest(router, "POST", "/api/v1/reports", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestReportFlow_SubmitSuccess(t *testing.T) {
	mockService, mockGeocoder, router := newTestHandler(t)
	sid := openReportSession(t, router)

	mockGeocoder.EXPECT().
		Search(gomock.Any(), "123 Main St", 5).
		Return([]geocoder.Result{{Lat: 49.25, Lon: -123.0, Name: "Main St"}}, nil).
		Times(1)

	var committed models.Incident
	mockService.EXPECT().
		Add(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc models.Incident) error {
			committed = inc
			return nil
		}).
		Times(1)
	mockService.EXPECT().
		Select(gomock.Any()).
		DoAndReturn(func(id string) (models.Incident, error) {
			return committed, nil
		}).
		Times(1)
	mockService.EXPECT().List(gomock.Any()).Return([]models.Incident{}).Times(1)

	addr, _ := json.Marshal(AddressRequest{Address: "123 Main St"})
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/address", sid), bytes.NewBuffer(addr))
	require.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/pin/confirm", sid), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/continue", sid), nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, f := range []FieldRequest{
		{Field: "name", Value: "Jane Doe"},
		{Field: "phoneNumber", Value: "6041234567"},
		{Field: "emergencyDesc", Value: "Fire"},
	} {
		body, _ := json.Marshal(f)
		w = makeRequest(router, "PUT", fmt.Sprintf("/api/v1/reports/%s/fields", sid), bytes.NewBuffer(body))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/submit", sid), nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Incident.ID)
	assert.Equal(t, "open", resp.Incident.Status)

	// The session is gone after a successful submit.
	w = makeRequest(router, "GET", fmt.Sprintf("/api/v1/reports/%s", sid), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportFlow_ValidationErrors(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	sid := openReportSession(t, router)

	mockService.EXPECT().Add(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/submit", sid), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp FieldErrorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Required", resp.FieldErrors["name"])
	assert.Equal(t, "Required", resp.FieldErrors["phoneNumber"])

	// The session survives a rejected submission.
	w = makeRequest(router, "GET", fmt.Sprintf("/api/v1/reports/%s", sid), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportFlow_ContinueWithoutConfirmation(t *testing.T) {
	_, _, router := newTestHandler(t)
	sid := openReportSession(t, router)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/continue", sid), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReportFlow_LookupFailureIsBadGateway(t *testing.T) {
	_, mockGeocoder, router := newTestHandler(t)
	sid := openReportSession(t, router)

	mockGeocoder.EXPECT().
		Search(gomock.Any(), "nowhere", 5).
		Return(nil, geocoder.ErrNoResults).
		Times(1)

	addr, _ := json.Marshal(AddressRequest{Address: "nowhere"})
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/address", sid), bytes.NewBuffer(addr))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "issue finding that address")
}

func TestReportFlow_UnknownSession(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "POST", "/api/v1/reports/no-such-session/continue", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "report session not found")
}

func TestReportFlow_CancelDiscardsSession(t *testing.T) {
	_, _, router := newTestHandler(t)
	sid := openReportSession(t, router)

	w := makeRequest(router, "DELETE", fmt.Sprintf("/api/v1/reports/%s", sid), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = makeRequest(router, "GET", fmt.Sprintf("/api/v1/reports/%s", sid), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditReport_RequiresStaffToken(t *testing.T) {
	mockService, _, router := newTestHandler(t)

	mockService.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents/id-1/report", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEditReport_PreloadsIncident(t *testing.T) {
	mockService, _, router := newTestHandler(t)
	incident := testIncident("id-1", "Fire", 49.25, -123.0)

	mockService.EXPECT().Get(gomock.Any(), "id-1").Return(incident, nil).Times(1)

	w := makeRequest(router, "POST", "/api/v1/incidents/id-1/report", nil, staffHeaders())

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp CreateReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Session.Editing)
	assert.Equal(t, "confirmed", resp.Session.Location)
	assert.Equal(t, "Fire", resp.Session.Values.EmergencyDesc)
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
